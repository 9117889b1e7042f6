package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	UploadDir           string
	SyncMinInterval     time.Duration
	SyncFetchWindow     int
	ReconnectDelay      time.Duration
	HealthSweepInterval time.Duration
}

func NewConfig() (*Config, error) {
	env := os.Getenv("RELAYDESK_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("RELAYDESK_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("RELAYDESK_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("RELAYDESK_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("RELAYDESK_DB_USER", "relaydesk"),
		DBPassword:          os.Getenv("RELAYDESK_DB_PASSWORD"),
		DBName:              getEnvOrDefault("RELAYDESK_DB_NAME", "relaydesk"),
		DBSSLMode:           getEnvOrDefault("RELAYDESK_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		UploadDir:           getEnvOrDefault("RELAYDESK_UPLOAD_DIR", "uploads"),
		SyncMinInterval:     getDurationOrDefault("RELAYDESK_SYNC_MIN_INTERVAL_SECONDS", 15*time.Second),
		SyncFetchWindow:     getIntOrDefault("RELAYDESK_SYNC_FETCH_WINDOW", 10),
		ReconnectDelay:      getDurationOrDefault("RELAYDESK_RECONNECT_DELAY_SECONDS", 30*time.Second),
		HealthSweepInterval: getDurationOrDefault("RELAYDESK_HEALTH_SWEEP_SECONDS", 60*time.Second),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("RELAYDESK_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("RELAYDESK_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getDurationOrDefault reads a whole-seconds env value.
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return defaultValue
}
