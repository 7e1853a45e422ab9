package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "SESSION_TTL", "TOKEN_EXPIRE_TIME", "STRICT_TURNS", "ALLOWED_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.SessionTTL)
	assert.Zero(t, cfg.TokenExpire)
	assert.False(t, cfg.StrictTurns)
	assert.Equal(t, DefaultQueueName, cfg.Historian.QueueName)
	assert.Equal(t, 500*time.Millisecond, cfg.Historian.FlushInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")
	t.Setenv("STRICT_TURNS", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 72*time.Hour, cfg.TokenExpire)
	assert.True(t, cfg.StrictTurns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"STORE_BACKEND":     "sqlite",
		"PORT":              "http",
		"TOKEN_EXPIRE_TIME": "soon",
		"SESSION_TTL":       "forever",
		"LOG_LEVEL":         "loud",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", "memory")
			t.Setenv("PORT", "8080")
			t.Setenv("TOKEN_EXPIRE_TIME", "")
			t.Setenv("SESSION_TTL", "")
			t.Setenv("LOG_LEVEL", "")
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{User: "u", Password: "p@ss", Host: "db", Port: "5433", Database: "lacosa"}
	assert.Equal(t, "postgres://u:p%40ss@db:5433/lacosa", p.DSN())
}
