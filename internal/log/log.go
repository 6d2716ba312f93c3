package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Locals keys read when enriching an entry from a request.
const (
	LocalRequestID = "requestid"
	LocalUserID    = "user_id"
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = build(zapcore.AddSync(os.Stdout))
)

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.MessageKey = "action"
	ec.CallerKey = ""
	ec.StacktraceKey = ""
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

func build(ws zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), ws, level)
	return zap.New(core)
}

// Setup sets the level and, when file is non-empty, tees output to it.
// The returned func flushes and closes the file.
func Setup(lvl, file string) (func(), error) {
	if lvl != "" {
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			return nil, err
		}
	}
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	var f *os.File
	if file != "" {
		var err error
		f, err = os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}
	l := build(zapcore.NewMultiWriteSyncer(sinks...))

	mu.Lock()
	base = l
	mu.Unlock()

	return func() {
		_ = l.Sync()
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// SetOutput redirects every entry to w and returns a func restoring the
// previous logger. Used by tests to capture output.
func SetOutput(w io.Writer) func() {
	l := build(zapcore.AddSync(w))
	mu.Lock()
	prev := base
	base = l
	mu.Unlock()
	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// L returns the process logger for code that has no request at hand.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func requestFields(c *fiber.Ctx) []zap.Field {
	if c == nil {
		return nil
	}
	fs := []zap.Field{
		zap.String("ip", c.IP()),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	if rid, ok := c.Locals(LocalRequestID).(string); ok && rid != "" {
		fs = append(fs, zap.String("req_id", rid))
	}
	if uid, ok := c.Locals(LocalUserID).(int64); ok && uid != 0 {
		fs = append(fs, zap.Int64("user_id", uid))
	}
	return fs
}

func write(lvl zapcore.Level, kind string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	fs := requestFields(c)
	fs = append(fs, zap.String("kind", kind))
	if err != nil {
		fs = append(fs, zap.String("err", err.Error()))
	}
	if len(fields) > 0 {
		fs = append(fs, zap.Any("fields", fields))
	}
	if ce := L().Check(lvl, action); ce != nil {
		ce.Write(fs...)
	}
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, "app", c, action, nil, fields)
}

// Audit records a privileged state change.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, "audit", c, action, nil, fields)
}

// Security records a rejected or suspicious request.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.WarnLevel, "security", c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(zapcore.ErrorLevel, "app", c, action, err, fields)
}

// Access logs one line per request with status and latency.
func Access() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// Resolve chain errors here so the logged status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		fs := append(requestFields(c),
			zap.String("kind", "access"),
			zap.Int("status", c.Response().StatusCode()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
		L().Info("http.request", fs...)
		return nil
	}
}
