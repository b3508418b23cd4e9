package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

var envPlaceholder = regexp.MustCompile(`\$\{[^{}]+\}`)

// ExpandEnv substitutes ${VAR} and ${VAR:default} placeholders in s.
// Unset variables resolve to the inline default, or to the empty
// string when none is given.
func ExpandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		key, fallback, _ := strings.Cut(m[2:len(m)-1], ":")
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fallback
	})
}

// GetEnv returns the named environment variable, or fallback when it
// is unset or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt parses the named environment variable as an int.
func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// GetEnvInt64 parses the named environment variable as an int64.
func GetEnvInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// GetEnvBool parses the named environment variable as a bool.
func GetEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// GetEnvSlice splits the named environment variable on commas,
// trimming whitespace around each element.
func GetEnvSlice(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
