// Package env reads environment variables with defaults, for the few knobs
// that live outside the envconfig-managed configuration.
package env

import "os"

// Get looks up key and falls back when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
