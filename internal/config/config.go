// Package config reads the storefront and mock backend settings from the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	CartStoreFile     = "file"
	CartStoreMemory   = "memory"
	CartStoreRedis    = "redis"
	CartStorePostgres = "postgres"
)

type Config struct {
	BackendURL      string
	BackendTimeout  time.Duration
	Port            string
	MockBackendPort string
	KafkaBrokers    string
	AllowedOrigins  []string
	LogLevel        logrus.Level
	Cart            CartConfig
}

type CartConfig struct {
	Store       string
	File        string
	Key         string
	RedisAddr   string
	DatabaseURL string
}

func Load() (Config, error) {
	cfg := Config{
		BackendURL:      strings.TrimRight(getEnv("BACKEND_URL", getEnv("VITE_BACKEND_URL", "http://localhost:8000")), "/"),
		Port:            getEnv("STOREFRONT_PORT", "8080"),
		MockBackendPort: getEnv("MOCK_BACKEND_PORT", "8000"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Cart: CartConfig{
			Store:       strings.ToLower(getEnv("CART_STORE", CartStoreFile)),
			File:        getEnv("CART_FILE", ".panda-lite/cart.json"),
			Key:         getEnv("CART_KEY", "cart"),
			RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
	}

	timeout, err := time.ParseDuration(getEnv("BACKEND_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("invalid BACKEND_TIMEOUT: must be positive")
	}
	cfg.BackendTimeout = timeout

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.Cart.Store {
	case CartStoreFile, CartStoreMemory, CartStoreRedis:
	case CartStorePostgres:
		if cfg.Cart.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when CART_STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown CART_STORE %q", cfg.Cart.Store)
	}

	return cfg, nil
}

// Logger builds the JSON logger shared by a binary's components.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(c.LogLevel)
	return logger
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
