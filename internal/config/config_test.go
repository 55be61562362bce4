package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "JWT_SECRET", "TOKEN_TTL_MIN", "KAFKA_ADDRESS",
		"REDIS_ADDR", "AI_MODEL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.Error(t, err)
	require.Nil(t, cfg)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	require.Equal(t, 12*time.Hour, cfg.TokenTTL)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL_MIN", "30")
	t.Setenv("KAFKA_ADDRESS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 30*time.Minute, cfg.TokenTTL)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadBadTTLFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL_MIN", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 12*time.Hour, cfg.TokenTTL)
}

func TestCSV(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, csv("a, b,"))
	require.Empty(t, csv(""))
}
