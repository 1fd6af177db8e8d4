package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.LockoutAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockoutWindow)
	assert.Equal(t, "notifications", cfg.Kafka.NotificationTopic)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SPENDWISE_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("AUTH_CODE_TTL", "5m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Auth.CodeTTL)
}

func TestFromEnvRejectsDevKeyInProduction(t *testing.T) {
	t.Setenv("SPENDWISE_ENV", "production")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}

func TestFromEnvRejectsMalformedDuration(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestFromEnvRejectsDisabledLockout(t *testing.T) {
	t.Setenv("AUTH_LOCKOUT_ATTEMPTS", "0")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_LOCKOUT_ATTEMPTS")
}
