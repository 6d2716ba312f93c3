package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := load()
		if err != nil {
			return err
		}
		defer closeLog()
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "listen port")
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	lg := applog.L()

	secret := cfg.JWTSecret
	if secret == "" {
		secret = config.EphemeralSecret()
		lg.Warn("config.jwt_secret.generated", zap.String("env", cfg.Env))
	}
	tokens, err := auth.NewService(secret, auth.WithTTLs(cfg.JWTUserTTL, cfg.JWTAdminTTL))
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var storage fiber.Storage
	if cfg.RedisAddr != "" {
		rs, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rs.Close()
		storage = rs
	}

	app := server.New(server.Options{
		Config:  cfg,
		DB:      db,
		Tokens:  tokens,
		Metrics: metrics.New(),
		Storage: storage,
	})

	errc := make(chan error, 1)
	go func() {
		lg.Info("server.start", zap.String("port", cfg.Port), zap.String("db_driver", cfg.DBDriver))
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	lg.Info("server.shutdown")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
