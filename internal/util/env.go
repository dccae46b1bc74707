package util

import "os"

// GetEnv reads an environment variable with a fallback. Used for settings
// that are read where they are needed rather than through config.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
