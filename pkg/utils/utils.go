// Package utils provides small helpers shared across the proxy.
package utils

import (
	"os"
	"strings"
)

// GetEnvWithDefault retrieves an environment variable or returns a default value if not set.
//
// Parameters:
//   - name: The name of the environment variable
//   - defaultValue: The default value to return if the environment variable is not set
//
// Returns the value of the environment variable, or the default value if not set.
func GetEnvWithDefault(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

// CountTokens returns the number of whitespace-separated tokens in s.
// This is the accounting unit for the usage counters of human-resolved
// completions; it is intentionally a plain word count, not a model
// tokenizer.
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

// MaskToken masks a credential for logging, keeping only a short prefix
// and suffix visible. Tokens too short to mask safely are replaced
// entirely.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
