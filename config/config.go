package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxPhotoBytes is the largest accepted photo upload, 5 MB.
const DefaultMaxPhotoBytes = 5 * 1024 * 1024

// Config holds all configuration for the civic report service
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	AllowedOrigins []string

	// Photo handling
	MaxPhotoBytes     int64
	PhotoNormalize    bool
	PhotoMaxDimension int

	// RabbitMQ configuration
	AMQPHost         string
	AMQPPort         string
	AMQPUser         string
	AMQPPassword     string
	RabbitMQExchange string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),

		MaxPhotoBytes:     int64(getIntEnv("MAX_PHOTO_BYTES", DefaultMaxPhotoBytes)),
		PhotoNormalize:    getBoolEnv("PHOTO_NORMALIZE", false),
		PhotoMaxDimension: getIntEnv("PHOTO_MAX_DIMENSION", 1024),

		// An empty host disables event publishing.
		AMQPHost:         getEnv("AMQP_HOST", ""),
		AMQPPort:         getEnv("AMQP_PORT", "5672"),
		AMQPUser:         getEnv("AMQP_USER", "guest"),
		AMQPPassword:     getEnv("AMQP_PASSWORD", "guest"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "civic-reports"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return config
}

// AMQPEnabled reports whether a RabbitMQ broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPHost != ""
}

// GetAMQPURL constructs the AMQP URL from the broker settings
func (c *Config) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", c.AMQPUser, c.AMQPPassword, c.AMQPHost, c.AMQPPort)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets a positive integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv gets a boolean environment variable or returns a default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated environment variable
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
