package config

import "fmt"

// Validate checks the configuration for values that would make the process
// unable to start or behave incorrectly. It does not attempt to reach the
// database or Redis; that happens at dial time in pkg/database and pkg/wake.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return NewValidationError("database", "host", ErrMissingRequiredField)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return NewValidationError("database", "port", fmt.Errorf("%w: %d", ErrInvalidValue, c.Database.Port))
	}
	if c.Database.Database == "" {
		return NewValidationError("database", "database", ErrMissingRequiredField)
	}

	if c.Driver.EmitterQueueCapacity <= 0 {
		return NewValidationError("driver", "emitter_queue_capacity", ErrInvalidValue)
	}
	if c.Driver.HeartbeatInterval <= 0 {
		return NewValidationError("driver", "heartbeat_interval", ErrInvalidValue)
	}
	if c.Driver.PersistenceRetryAttempts <= 0 {
		return NewValidationError("driver", "persistence_retry_attempts", ErrInvalidValue)
	}
	if c.Driver.WatcherPollInterval <= 0 {
		return NewValidationError("driver", "watcher_poll_interval", ErrInvalidValue)
	}

	if c.Retention.CleanupInterval <= 0 {
		return NewValidationError("retention", "cleanup_interval", ErrInvalidValue)
	}

	if c.HTTP.Addr == "" {
		return NewValidationError("http", "addr", ErrMissingRequiredField)
	}

	if c.Wake.Enabled() && c.Wake.DB < 0 {
		return NewValidationError("wake", "db", ErrInvalidValue)
	}

	return nil
}
