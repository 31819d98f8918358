package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("HEARTBEAT_INTERVAL", "5s")
	t.Setenv("WAKE_REDIS_ADDR", "redis.internal:6379")

	c := Load()
	assert.Equal(t, "db.internal", c.Database.Host)
	assert.Equal(t, 6543, c.Database.Port)
	assert.Equal(t, "5s", c.Driver.HeartbeatInterval.String())
	assert.True(t, c.Wake.Enabled())
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("HEARTBEAT_INTERVAL", "not-a-duration")

	c := Load()
	assert.Equal(t, DefaultDatabaseConfig().Port, c.Database.Port)
	assert.Equal(t, DefaultDriverConfig().HeartbeatInterval, c.Driver.HeartbeatInterval)
}

func TestLoadLeavesDefaultsWhenUnset(t *testing.T) {
	c := Load()
	assert.Equal(t, Default().Database.Host, c.Database.Host)
}
