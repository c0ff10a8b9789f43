package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pavitra93/go-coliving-admin/shared/inventory"
)

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses an integer environment variable, falling back on error
func GetEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

// GetEnvDuration parses a duration environment variable ("30s", "5m")
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GetRedisConfig returns Redis configuration from environment variables
func GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     GetEnv("REDIS_HOST", "localhost"),
		Port:     GetEnv("REDIS_PORT", "6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       GetEnvInt("REDIS_DB", 0),
	}
}

// Addr returns host:port
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadInventory reads INVENTORY_FILE, or returns the built-in building
func LoadInventory() (*inventory.Inventory, error) {
	path := os.Getenv("INVENTORY_FILE")
	if path == "" {
		return inventory.Default(), nil
	}
	return inventory.Load(path)
}
