package config

import "strings"

// MetricsConfig contains the StatsD metrics configuration. Metrics are off
// unless an address is configured.
type MetricsConfig struct {
	// Enabled turns metric emission on.
	Enabled bool `env:"STATSD_ENABLED" envDefault:"false"`

	// Address is the UDP endpoint of a StatsD-compatible sink
	// (e.g., "127.0.0.1:8125").
	Address string `env:"STATSD_ADDR" envDefault:""`

	// Prefix is prepended to every metric name.
	Prefix string `env:"STATSD_PREFIX" envDefault:"slidesmith"`
}

// Sanitize applies guardrails to metrics configuration values.
func (m *MetricsConfig) Sanitize() {
	m.Address = strings.TrimSpace(m.Address)
	if m.Address == "" {
		m.Enabled = false
	}
}
