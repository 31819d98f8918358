package config

// WakeConfig configures the optional Redis pub/sub latency-cache hint.
// Addr empty disables the wake hint entirely; watchers fall back to pure
// polling, which remains correct on its own.
type WakeConfig struct {
	Addr     string `env:"WAKE_REDIS_ADDR"`
	Password string `env:"WAKE_REDIS_PASSWORD"`
	DB       int    `env:"WAKE_REDIS_DB"`
}

// DefaultWakeConfig returns the wake hint disabled (empty Addr).
func DefaultWakeConfig() *WakeConfig {
	return &WakeConfig{}
}

// Enabled reports whether a broker address was configured.
func (c *WakeConfig) Enabled() bool {
	return c != nil && c.Addr != ""
}
