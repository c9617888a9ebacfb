package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

// Config holds application configuration
type Config struct {
	Port            string
	DBConn          string
	LogLevel        string
	JWTSecret       string
	EncryptionKey   []byte
	HMACSecret      string
	ExpirySweepCron string
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	NotifyByEmail   bool
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		HMACSecret:      getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		ExpirySweepCron: getEnv("CARD_EXPIRY_CRON", "0 1 * * *"),
		SMTPHost:        getEnv("SMTP_HOST", "localhost"),
		SMTPPort:        getEnv("SMTP_PORT", "1025"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "noreply@bank.local"),
		NotifyByEmail:   getEnv("NOTIFY_BY_EMAIL", "false") == "true",
	}

	keyHex := getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6")
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24, or 32 bytes, got %d", len(key))
	}
	cfg.EncryptionKey = key

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
