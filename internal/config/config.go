// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// Server
	Addr string

	// Database
	DataDir string

	// Calendar sync
	SyncIntervalMin int
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory. Credentials and paths are injected
// here once instead of being looked up ad hoc around the codebase.
func Load() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return &Config{
		Addr:            getEnv("ADDR", ":8080"),
		DataDir:         getEnv("DATA_DIR", "./data"),
		SyncIntervalMin: getEnvInt("SYNC_INTERVAL_MIN", 15),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
