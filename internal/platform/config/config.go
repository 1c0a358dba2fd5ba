// Package config builds service configuration from the environment so main
// stays lean. A local .env file is honored for development; production
// supplies real environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Tokens    TokenConfig
	Admin     AdminConfig
	Detection DetectionConfig
	RateLimit RateLimitConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LogConfig controls the root slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// PostgresConfig configures the audit store and directory databases.
// An empty DSN switches both to in-memory stores (development mode).
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig configures the rate-limit store. Empty URL disables Redis and
// rate limiting falls back to in-memory counters.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit ingest consumer and the finding publisher.
// Empty brokers disable both.
type KafkaConfig struct {
	Brokers       []string
	IngestTopic   string
	FindingTopic  string
	ConsumerGroup string
}

// TokenConfig configures the event access token issuer.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// AdminConfig gates the admin HTTP surface.
type AdminConfig struct {
	TokenHash string
}

// DetectionConfig bounds detection sub-checks.
type DetectionConfig struct {
	CheckTimeout  time.Duration
	FindingBuffer int
}

// RateLimitConfig bounds the public HTTP surface per client IP, with one
// budget per endpoint class sharing a window.
type RateLimitConfig struct {
	Disabled          bool
	Window            time.Duration
	ReadRequests      int
	WriteRequests     int
	DetectionRequests int
	TokenRequests     int
}

// Load reads configuration from the environment, applying development
// defaults where safe. It returns an error for values that parse but make
// no sense (non-positive windows, malformed durations).
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Postgres: PostgresConfig{
			DSN:          os.Getenv("POSTGRES_DSN"),
			MaxOpenConns: getInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnLifetime: getDuration("POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			IngestTopic:   getEnv("KAFKA_INGEST_TOPIC", "audit.events"),
			FindingTopic:  getEnv("KAFKA_FINDING_TOPIC", "audit.security"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "custos-ingest"),
		},
		Tokens: TokenConfig{
			// Development default - must be overridden in production.
			Secret: getEnv("ACCESS_TOKEN_SECRET", "insecure-dev-secret-change-in-production"),
			TTL:    getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			TokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		},
		Detection: DetectionConfig{
			CheckTimeout:  getDuration("CHECK_TIMEOUT", 5*time.Second),
			FindingBuffer: getInt("FINDING_BUFFER_SIZE", 1000),
		},
		RateLimit: RateLimitConfig{
			Disabled:          getBool("RATE_LIMIT_DISABLED", false),
			Window:            getDuration("RATE_LIMIT_WINDOW", time.Minute),
			ReadRequests:      getInt("RATE_LIMIT_READ_REQUESTS", 100),
			WriteRequests:     getInt("RATE_LIMIT_WRITE_REQUESTS", 50),
			DetectionRequests: getInt("RATE_LIMIT_DETECTION_REQUESTS", 10),
			TokenRequests:     getInt("RATE_LIMIT_TOKEN_REQUESTS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that parse but cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.Tokens.TTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.Detection.CheckTimeout <= 0 {
		return fmt.Errorf("CHECK_TIMEOUT must be positive")
	}
	if c.Detection.FindingBuffer <= 0 {
		return fmt.Errorf("FINDING_BUFFER_SIZE must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	for _, n := range []int{
		c.RateLimit.ReadRequests,
		c.RateLimit.WriteRequests,
		c.RateLimit.DetectionRequests,
		c.RateLimit.TokenRequests,
	} {
		if n <= 0 {
			return fmt.Errorf("rate limit request budgets must be positive")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
