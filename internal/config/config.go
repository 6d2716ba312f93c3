package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minSecretLen = 32

type Config struct {
	Env  string
	Port string

	DBDriver          string
	DBDSN             string
	DBPoolSize        int
	DBMaxOverflow     int
	DBConnMaxLifetime time.Duration

	JWTSecret   string
	JWTUserTTL  time.Duration
	JWTAdminTTL time.Duration

	LogLevel string
	LogFile  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins string
	BodyLimit   int
}

// SetDefaults registers every key with its default so that AutomaticEnv can
// resolve it and so that cobra flags bound later have something to override.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "storefront.db")
	v.SetDefault("db_pool_size", 5)
	v.SetDefault("db_max_overflow", 10)
	v.SetDefault("db_conn_max_lifetime", time.Hour)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_user_ttl", 30*time.Minute)
	v.SetDefault("jwt_admin_ttl", 60*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("body_limit", 1<<20)
}

// New returns a viper instance with defaults, .env values and the process
// environment wired in. A config file is read when path is non-empty.
func New(path string) (*viper.Viper, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// FromViper materializes a Config and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:               strings.ToLower(v.GetString("env")),
		Port:              v.GetString("port"),
		DBDriver:          strings.ToLower(v.GetString("db_driver")),
		DBDSN:             v.GetString("db_dsn"),
		DBPoolSize:        v.GetInt("db_pool_size"),
		DBMaxOverflow:     v.GetInt("db_max_overflow"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		JWTSecret:         v.GetString("jwt_secret"),
		JWTUserTTL:        v.GetDuration("jwt_user_ttl"),
		JWTAdminTTL:       v.GetDuration("jwt_admin_ttl"),
		LogLevel:          v.GetString("log_level"),
		LogFile:           v.GetString("log_file"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		CORSOrigins:       v.GetString("cors_origins"),
		BodyLimit:         v.GetInt("body_limit"),
	}
	return cfg, cfg.Validate()
}

// Load is the one-call form used by commands that take no config file.
func Load() (Config, error) {
	v, err := New("")
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("db_driver must be sqlite or pgx, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("db_dsn is required")
	}
	if c.DBPoolSize < 1 || c.DBMaxOverflow < 0 {
		return errors.New("db_pool_size must be >= 1 and db_max_overflow >= 0")
	}
	if c.JWTUserTTL <= 0 || c.JWTAdminTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes", minSecretLen)
	}
	if c.JWTSecret == "" && !c.IsDev() {
		return errors.New("jwt_secret is required outside dev")
	}
	return nil
}

func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "test" }

// MaxOpenConns mirrors a pool of DBPoolSize with DBMaxOverflow extra connections.
func (c Config) MaxOpenConns() int { return c.DBPoolSize + c.DBMaxOverflow }

// EphemeralSecret returns a random signing key for dev runs without
// jwt_secret. Tokens signed with it do not survive a restart.
func EphemeralSecret() string {
	b := make([]byte, minSecretLen)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
