package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for deployment-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	switch c.Vector.Backend {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("VECTOR_BACKEND must be memory, sqlite or postgres, got %q", c.Vector.Backend))
	}

	switch c.Memory.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("MEMORY_BACKEND must be memory or redis, got %q", c.Memory.Backend))
	}

	if c.Memory.Cap < 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_CAP must be positive, got %d", c.Memory.Cap))
	}

	if c.Vector.Backend == "postgres" && c.Vector.PGPassword == "" {
		errs = append(errs, "VECTOR_PG_PASSWORD is required for the postgres vector backend")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Missing credentials degrade at call time; warn only.
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty - assuming a local provider that needs no key")
	}
	if c.Search.APIKey == "" {
		slog.Warn("SEARCH_API_KEY is empty - the web search tool will return an error sentinel")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
