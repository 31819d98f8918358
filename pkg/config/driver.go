package config

import "time"

// DriverConfig controls the emitter, persistence retry, heartbeat, watcher
// and registry-sweep knobs the streaming substrate's driver depends on.
// Shape mirrors the teacher's own QueueConfig: one struct per concern, a
// Default constructor, time.Duration fields throughout.
type DriverConfig struct {
	// EmitterQueueCapacity bounds the per-request event queue.
	EmitterQueueCapacity int `env:"EMITTER_QUEUE_CAPACITY"`

	// HeartbeatInterval is how long the driver waits without yielding an
	// event to the watcher before emitting a STATUS heartbeat.
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`

	// PersistenceRetryAttempts and PersistenceRetryBaseDelay control the
	// bounded exponential backoff used by the event-store append path.
	PersistenceRetryAttempts  int           `env:"PERSISTENCE_RETRY_ATTEMPTS"`
	PersistenceRetryBaseDelay time.Duration `env:"PERSISTENCE_RETRY_BASE_DELAY"`

	// RobustWriterRetryAttempts and RobustWriterRetryDelay control the
	// driver's own linear-backoff robust event writer, a distinct constant
	// set from the persistence layer's.
	RobustWriterRetryAttempts int           `env:"ROBUST_WRITER_RETRY_ATTEMPTS"`
	RobustWriterRetryDelay    time.Duration `env:"ROBUST_WRITER_RETRY_DELAY"`

	// RegistryMaxAge is the age at which the registry's periodic cleanup
	// reaps finished tasks. RegistrySweepInterval is loaded but not read by
	// any sweep: the registry sweep runs on RetentionConfig.CleanupInterval.
	RegistrySweepInterval time.Duration `env:"REGISTRY_SWEEP_INTERVAL"`
	RegistryMaxAge        time.Duration `env:"REGISTRY_MAX_AGE"`

	// WatcherPollInterval and WatcherMaxWait control the SSE watcher's
	// persistence-polling loop.
	WatcherPollInterval time.Duration `env:"WATCHER_POLL_INTERVAL"`
	WatcherMaxWait      time.Duration `env:"WATCHER_MAX_WAIT"`

	// ContentChunkWords is the approximate word count per CONTENT chunk
	// emitted on the completed path, and ContentChunkDelay the inter-chunk
	// pacing delay.
	ContentChunkWords int           `env:"CONTENT_CHUNK_WORDS"`
	ContentChunkDelay time.Duration `env:"CONTENT_CHUNK_DELAY"`
}

// DefaultDriverConfig returns the built-in driver defaults, matching the
// values named throughout the specification's component design.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		EmitterQueueCapacity:      1000,
		HeartbeatInterval:         15 * time.Second,
		PersistenceRetryAttempts:  3,
		PersistenceRetryBaseDelay: 100 * time.Millisecond,
		RobustWriterRetryAttempts: 3,
		RobustWriterRetryDelay:    100 * time.Millisecond,
		RegistrySweepInterval:     10 * time.Minute,
		RegistryMaxAge:            24 * time.Hour,
		WatcherPollInterval:       500 * time.Millisecond,
		WatcherMaxWait:            time.Hour,
		ContentChunkWords:         10,
		ContentChunkDelay:         30 * time.Millisecond,
	}
}
