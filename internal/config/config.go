// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	// SecretKey is the 32-byte AES-256 key for account secrets; nil when unset.
	SecretKey []byte
}

// HasSecretKey returns true when an encryption key is configured. Without one
// the vault still runs, but accounts cannot carry passwords or 2FA secrets.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: ACCOUNTVAULT_LISTEN_ADDR (127.0.0.1:8080),
// ACCOUNTVAULT_DB_PATH (accountvault.db), ACCOUNTVAULT_SECRET_KEY (64 hex chars).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("ACCOUNTVAULT_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	dbPath := "accountvault.db"
	if v, ok := os.LookupEnv("ACCOUNTVAULT_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("ACCOUNTVAULT_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("ACCOUNTVAULT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ACCOUNTVAULT_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	return &Config{
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		SecretKey:  secretKey,
	}, nil
}
