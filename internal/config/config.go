// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultQueueName is the Redis list that carries the action log to the historian.
const DefaultQueueName = "lacosa_actions"

// Postgres holds the connection settings read from POSTGRES_* and PG_* variables.
type Postgres struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// DSN builds a postgres:// connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	return u.String()
}

// Historian configures the action log consumer.
type Historian struct {
	QueueName         string
	BatchSize         int
	FlushInterval     time.Duration
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
}

// Config is the process configuration shared by the server and historian binaries.
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string

	StoreBackend string
	Postgres     Postgres
	RedisAddr    string
	RedisDB      int
	// SessionTTL expires idle sessions in the Redis store; zero keeps them forever.
	SessionTTL time.Duration

	StrictTurns bool
	TokenExpire time.Duration

	// ActionLog enables publishing every successful operation to the historian queue.
	ActionLog bool
	Historian Historian

	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment, applying defaults.
func Load() (Config, error) {
	expire, err := parseExpire(getEnv("TOKEN_EXPIRE_TIME", ""))
	if err != nil {
		return Config{}, err
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("SESSION_TTL: %w", err)
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("LACOSA_ENV", "development"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		Postgres: Postgres{
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Database: getEnv("PG_DATABASE", "lacosa"),
		},
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		SessionTTL:  ttl,
		StrictTurns: getEnvBool("STRICT_TURNS", false),
		TokenExpire: expire,
		ActionLog:   getEnvBool("ACTION_LOG_ENABLED", false),
		Historian: Historian{
			QueueName:         getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
			BatchSize:         getEnvInt("HISTORIAN_BATCH_SIZE", 20),
			FlushInterval:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
			InactivityTimeout: time.Duration(getEnvInt("SESSION_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
			SweepInterval:     time.Duration(getEnvInt("HISTORIAN_SWEEP_SEC", 60)) * time.Second,
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not a number", c.Port))
	}
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q must be memory, postgres or redis", c.StoreBackend))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.Historian.BatchSize < 1 {
		errs = append(errs, errors.New("HISTORIAN_BATCH_SIZE must be at least 1"))
	}
	if c.Historian.FlushInterval <= 0 {
		errs = append(errs, errors.New("HISTORIAN_FLUSH_MS must be positive"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// NewLogger builds a logrus logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// parseExpire accepts "", "0" or "never" for tokens without expiry, else a Go duration.
func parseExpire(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
