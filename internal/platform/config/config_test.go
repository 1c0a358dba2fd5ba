package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// The service must boot with zero environment in development.
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "audit.events", cfg.Kafka.IngestTopic)
	assert.Equal(t, "audit.security", cfg.Kafka.FindingTopic)
	assert.Equal(t, 24*time.Hour, cfg.Tokens.TTL)
	assert.Equal(t, 5*time.Second, cfg.Detection.CheckTimeout)
	assert.Equal(t, 1000, cfg.Detection.FindingBuffer)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 100, cfg.RateLimit.ReadRequests)
	assert.Equal(t, 10, cfg.RateLimit.DetectionRequests)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Tokens.TTL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Postgres.MaxOpenConns)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Tokens.TTL)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
}

func TestValidate_RejectsNonsense(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero token ttl", func(c *Config) { c.Tokens.TTL = 0 }},
		{"negative check timeout", func(c *Config) { c.Detection.CheckTimeout = -time.Second }},
		{"zero finding buffer", func(c *Config) { c.Detection.FindingBuffer = 0 }},
		{"zero rate window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"zero detection budget", func(c *Config) { c.RateLimit.DetectionRequests = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
