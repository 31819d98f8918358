package config

import (
	"os"
	"strconv"
	"time"
)

// Load returns Default() with any recognized environment variables applied
// on top. Unset variables leave the default untouched. Godotenv (invoked by
// cmd's main, not here) populates the process environment from a local .env
// file before Load runs, so the two paths compose without this package
// needing to know about file loading at all.
func Load() *Config {
	c := Default()

	c.Database.Host = envString("DB_HOST", c.Database.Host)
	c.Database.Port = envInt("DB_PORT", c.Database.Port)
	c.Database.User = envString("DB_USER", c.Database.User)
	c.Database.Password = envString("DB_PASSWORD", c.Database.Password)
	c.Database.Database = envString("DB_NAME", c.Database.Database)
	c.Database.SSLMode = envString("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = envInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)
	c.Database.ConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", c.Database.ConnMaxIdleTime)

	c.Driver.EmitterQueueCapacity = envInt("EMITTER_QUEUE_CAPACITY", c.Driver.EmitterQueueCapacity)
	c.Driver.HeartbeatInterval = envDuration("HEARTBEAT_INTERVAL", c.Driver.HeartbeatInterval)
	c.Driver.PersistenceRetryAttempts = envInt("PERSISTENCE_RETRY_ATTEMPTS", c.Driver.PersistenceRetryAttempts)
	c.Driver.PersistenceRetryBaseDelay = envDuration("PERSISTENCE_RETRY_BASE_DELAY", c.Driver.PersistenceRetryBaseDelay)
	c.Driver.RobustWriterRetryAttempts = envInt("ROBUST_WRITER_RETRY_ATTEMPTS", c.Driver.RobustWriterRetryAttempts)
	c.Driver.RobustWriterRetryDelay = envDuration("ROBUST_WRITER_RETRY_DELAY", c.Driver.RobustWriterRetryDelay)
	c.Driver.RegistrySweepInterval = envDuration("REGISTRY_SWEEP_INTERVAL", c.Driver.RegistrySweepInterval)
	c.Driver.RegistryMaxAge = envDuration("REGISTRY_MAX_AGE", c.Driver.RegistryMaxAge)
	c.Driver.WatcherPollInterval = envDuration("WATCHER_POLL_INTERVAL", c.Driver.WatcherPollInterval)
	c.Driver.WatcherMaxWait = envDuration("WATCHER_MAX_WAIT", c.Driver.WatcherMaxWait)
	c.Driver.ContentChunkWords = envInt("CONTENT_CHUNK_WORDS", c.Driver.ContentChunkWords)
	c.Driver.ContentChunkDelay = envDuration("CONTENT_CHUNK_DELAY", c.Driver.ContentChunkDelay)

	c.Retention.EventTTL = envDuration("EVENT_TTL", c.Retention.EventTTL)
	c.Retention.CleanupInterval = envDuration("CLEANUP_INTERVAL", c.Retention.CleanupInterval)

	c.HTTP.Addr = envString("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.BodyLimitMB = envInt("HTTP_BODY_LIMIT_MB", c.HTTP.BodyLimitMB)

	c.Wake.Addr = envString("WAKE_REDIS_ADDR", c.Wake.Addr)
	c.Wake.Password = envString("WAKE_REDIS_PASSWORD", c.Wake.Password)
	c.Wake.DB = envInt("WAKE_REDIS_DB", c.Wake.DB)

	return c
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
