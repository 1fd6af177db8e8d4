package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration. Empty DATABASE_URL, REDIS_URL or
// KAFKA_BROKERS select the in-memory implementations so the binary runs standalone.
type Server struct {
	Addr            string        `env:"SPENDWISE_ADDR" envDefault:":8080"`
	Environment     string        `env:"SPENDWISE_ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	RequestTimeout  time.Duration `env:"SPENDWISE_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SPENDWISE_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Outbox   OutboxConfig
}

// AuthConfig controls token issuance and one-time codes.
type AuthConfig struct {
	JWTSigningKey       string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer           string        `env:"JWT_ISSUER" envDefault:"spendwise"`
	JWTAudience         string        `env:"JWT_AUDIENCE" envDefault:"spendwise-api"`
	TokenTTL            time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
	CodeTTL             time.Duration `env:"AUTH_CODE_TTL" envDefault:"15m"`
	CodeRequestCooldown time.Duration `env:"AUTH_CODE_COOLDOWN" envDefault:"60s"`

	LockoutAttempts         int           `env:"AUTH_LOCKOUT_ATTEMPTS" envDefault:"5"`
	LockoutWindow           time.Duration `env:"AUTH_LOCKOUT_WINDOW" envDefault:"15m"`
	LockoutDailyThreshold   int           `env:"AUTH_LOCKOUT_DAILY_THRESHOLD" envDefault:"20"`
	LockoutHardLockDuration time.Duration `env:"AUTH_LOCKOUT_HARD_LOCK" envDefault:"1h"`
}

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the notification producer.
type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"notifications"`
	Partitions        int32    `env:"KAFKA_NOTIFICATION_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
}

// OutboxConfig controls the outbox relay loop.
type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production hardening.
func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c Server) validate() error {
	if c.IsProduction() && c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if c.Auth.LockoutAttempts <= 0 || c.Auth.LockoutWindow <= 0 {
		return fmt.Errorf("AUTH_LOCKOUT_ATTEMPTS and AUTH_LOCKOUT_WINDOW must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}
