package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	applog "github.com/simaogato/budgetline-backend/internal/log"
)

// Data backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	// gRPC server
	GRPCPort       string
	APIToken       string
	RequestTimeout time.Duration

	// Rate limiting of mutating RPCs
	RateLimit    int
	RateInterval time.Duration
	RedisAddr    string // empty keeps the counters in process

	// Storage
	DataBackend   string
	DBConnStr     string
	DBAutoMigrate bool

	// AMQP (empty URL disables event publishing)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		GRPCPort:       getEnv("GRPC_PORT", "8080"),
		APIToken:       getEnv("API_TOKEN", "dev-token"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		RateLimit:    getEnvInt("RATE_LIMIT", 20),
		RateInterval: getEnvDuration("RATE_INTERVAL", 60*time.Second),
		RedisAddr:    getEnv("REDIS_ADDR", ""),

		DataBackend:   getEnv("DATA_BACKEND", BackendPostgres),
		DBConnStr:     getEnv("DB_CONN_STR", ""),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "budgetline"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "derogation.events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DBConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "budgetline"),
		)
	}

	return cfg
}

// ListenAddr is the TCP address the gRPC server binds to
func (c *Config) ListenAddr() string {
	return ":" + c.GRPCPort
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.GRPCPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.GRPCPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIToken == "" {
		errors = append(errors, "API token cannot be empty")
	}

	validBackends := []string{BackendPostgres, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendPostgres && c.DBConnStr == "" {
		errors = append(errors, "database connection string cannot be empty when using postgres backend")
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate interval %v: must be at least 1 second", c.RateInterval))
	}
	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
