package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Throttle  ThrottleConfig
	Challenge ChallengeConfig
	Events    EventsConfig
	Notify    NotifyConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	TrustedProxies []string
}

// ThrottleConfig controls per-address login attempt limits.
type ThrottleConfig struct {
	MaxAttempts   int           // failures before the block window engages
	WarnThreshold int           // failures before a suspicious-activity event
	BlockWindow   time.Duration // sliding cooldown measured from the last failure
	Retention     time.Duration // absolute record lifetime, independent of block state
	SweepInterval time.Duration // memory store garbage collection cadence
	Backend       string        // "memory" or "redis"
}

type ChallengeConfig struct {
	PendingSecret string        // HMAC secret for pending challenge tokens
	PendingTTL    time.Duration // validity window for a pending token
}

type EventsConfig struct {
	SuspiciousWindow    time.Duration
	SuspiciousThreshold int
	QueueSize           int // notification dispatch queue depth
}

type NotifyConfig struct {
	AWSRegion   string
	FromAddress string
	SiteName    string
	Enabled     bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	pendingSecret := getEnv("PENDING_TOKEN_SECRET", "")
	if pendingSecret == "" {
		return nil, fmt.Errorf("PENDING_TOKEN_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "authcore"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Throttle: ThrottleConfig{
			MaxAttempts:   getEnvAsInt("THROTTLE_MAX_ATTEMPTS", 5),
			WarnThreshold: getEnvAsInt("THROTTLE_WARN_THRESHOLD", 3),
			BlockWindow:   getEnvAsDuration("THROTTLE_BLOCK_WINDOW", 30*time.Second),
			Retention:     getEnvAsDuration("THROTTLE_RETENTION", 1*time.Hour),
			SweepInterval: getEnvAsDuration("THROTTLE_SWEEP_INTERVAL", 5*time.Minute),
			Backend:       getEnv("THROTTLE_BACKEND", "memory"),
		},
		Challenge: ChallengeConfig{
			PendingSecret: pendingSecret,
			PendingTTL:    getEnvAsDuration("PENDING_TOKEN_TTL", 5*time.Minute),
		},
		Events: EventsConfig{
			SuspiciousWindow:    getEnvAsDuration("EVENTS_SUSPICIOUS_WINDOW", 1*time.Hour),
			SuspiciousThreshold: getEnvAsInt("EVENTS_SUSPICIOUS_THRESHOLD", 10),
			QueueSize:           getEnvAsInt("EVENTS_NOTIFY_QUEUE_SIZE", 256),
		},
		Notify: NotifyConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("NOTIFY_FROM_ADDRESS", ""),
			SiteName:    getEnv("NOTIFY_SITE_NAME", "Otzivi"),
			Enabled:     getEnvAsBool("NOTIFY_ENABLED", true),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if err := validatePendingSecret(pendingSecret, env); err != nil {
		return nil, err
	}
	if cfg.Throttle.Backend != "memory" && cfg.Throttle.Backend != "redis" {
		return nil, fmt.Errorf("THROTTLE_BACKEND must be memory or redis, got %q", cfg.Throttle.Backend)
	}
	if cfg.Throttle.WarnThreshold >= cfg.Throttle.MaxAttempts {
		return nil, fmt.Errorf("THROTTLE_WARN_THRESHOLD (%d) must be below THROTTLE_MAX_ATTEMPTS (%d)",
			cfg.Throttle.WarnThreshold, cfg.Throttle.MaxAttempts)
	}
	if cfg.Notify.Enabled && cfg.Notify.FromAddress == "" {
		return nil, fmt.Errorf("NOTIFY_FROM_ADDRESS is required when NOTIFY_ENABLED=true")
	}

	return cfg, nil
}

// validatePendingSecret enforces minimum strength for the pending token secret
func validatePendingSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("PENDING_TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("PENDING_TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
