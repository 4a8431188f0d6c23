// Package config provides runtime configuration values for the services.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the connection and tuning knobs every service reads at
// startup. Constructed once in main and passed down explicitly.
type Config struct {
	Env string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr string

	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string

	ConsulHost string
	ConsulPort int

	// OrderServiceURL is the static fallback for the status callback when
	// Consul discovery is unavailable.
	OrderServiceURL string

	MaxRetries    int
	ConsumerBlock time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		Env: getenv("APP_ENV", "development"),

		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     atoienv("POSTGRES_PORT", 5432),
		PostgresUser:     getenv("POSTGRES_USER", "fulfillment"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "fulfillment123"),
		PostgresDB:       getenv("POSTGRES_DB", "fulfillment"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		RabbitHost:     getenv("RABBITMQ_HOST", "localhost"),
		RabbitPort:     atoienv("RABBITMQ_PORT", 5672),
		RabbitUser:     getenv("RABBITMQ_USER", "guest"),
		RabbitPassword: getenv("RABBITMQ_PASSWORD", "guest"),

		ConsulHost: getenv("CONSUL_HOST", "localhost"),
		ConsulPort: atoienv("CONSUL_PORT", 8500),

		OrderServiceURL: getenv("ORDER_SERVICE_URL", "http://localhost:8082"),

		MaxRetries:    atoienv("MAX_RETRIES", 3),
		ConsumerBlock: time.Duration(atoienv("CONSUMER_BLOCK_MS", 5000)) * time.Millisecond,
	}
}
