package config

import "time"

// RetentionConfig controls event-log TTL and the cleanup sweep interval.
// Zero EventTTL means "no TTL" — the spec's event-log TTL index is optional.
type RetentionConfig struct {
	// EventTTL is the maximum age of a persisted event before the cleanup
	// sweep deletes it. Zero disables TTL-based deletion entirely.
	EventTTL time.Duration `env:"EVENT_TTL"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`
}

// DefaultRetentionConfig returns the built-in retention defaults: events
// live 14 days, the sweep runs every 12 hours.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		EventTTL:        14 * 24 * time.Hour,
		CleanupInterval: 12 * time.Hour,
	}
}
