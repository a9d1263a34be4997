package config

import (
	"fmt"
	"path/filepath"
)

// Validate checks the configuration and fills store-dependent defaults
func (c *Config) Validate() error {
	switch c.Store {
	case "memory":
	case "duckdb", "sqlite":
		if c.DSN == "" {
			c.DSN = filepath.Join(".health-sessions", "sessions."+c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, duckdb or sqlite)", c.Store)
	}

	if c.ServiceTimeout <= 0 {
		return fmt.Errorf("service_timeout must be positive, got %s", c.ServiceTimeout)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.Sample.Duration <= 0 {
		return fmt.Errorf("sample.duration must be positive, got %s", c.Sample.Duration)
	}
	if c.Sample.Name == "" {
		return fmt.Errorf("sample.name must not be empty")
	}
	return nil
}
