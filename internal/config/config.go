package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the node.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // PostgreSQL; SQLite at SQLitePath when empty
	SQLitePath  string
	RedisURL    string
	VaultPath   string // Badger directory; in-memory when empty

	// GatewayKey is the base64 Ed25519 seed or private key input proofs are signed with.
	GatewayKey string

	// Deploy policy
	DeployerAddress string
	BotAddress      string
	ResponseAddress string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/fheai.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		VaultPath:        os.Getenv("VAULT_PATH"),
		GatewayKey:       os.Getenv("GATEWAY_KEY"),
		DeployerAddress:  os.Getenv("DEPLOYER_ADDRESS"),
		BotAddress:       os.Getenv("BOT_ADDRESS"),
		ResponseAddress:  os.Getenv("RESPONSE_ADDRESS"),
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	cfg.RateLimitWhitelist = splitList(os.Getenv("RATE_LIMIT_WHITELIST"))

	// In production, require durable storage and a stable gateway key
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.GatewayKey == "" {
			panic("GATEWAY_KEY is required in production")
		}
		if cfg.VaultPath == "" {
			panic("VAULT_PATH is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
