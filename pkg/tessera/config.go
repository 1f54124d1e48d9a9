package tessera

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config contains the engine's tunable options.
type Config struct {
	// MaxIncludeDepth bounds nested includes so an include loop fails
	// instead of recursing forever.
	MaxIncludeDepth int
	// StrictUndefined makes output of an undefined variable an error.
	// When false, undefined output renders as an empty string.
	// Conditions and tests are unaffected either way.
	StrictUndefined bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxIncludeDepth: 16,
		StrictUndefined: true,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// TESSERA_MAX_INCLUDE_DEPTH
	if val := os.Getenv("TESSERA_MAX_INCLUDE_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxIncludeDepth = depth
		}
	}

	// TESSERA_STRICT_UNDEFINED
	if val := os.Getenv("TESSERA_STRICT_UNDEFINED"); val != "" {
		config.StrictUndefined = parseBool(val)
	}

	return config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxIncludeDepth <= 0 {
		return errors.New("max include depth must be positive")
	}
	return nil
}

// parseBool parses a boolean value from a string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
