package config

import (
	"strings"
	"time"
)

// ServerConfig contains the lifecycle API endpoint configuration.
type ServerConfig struct {
	// BaseURL is the base URL of the generation service's HTTP API
	// (e.g., "http://localhost:8000"). Lifecycle calls are made against
	// "<BaseURL>/api/...".
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout is the per-request timeout for lifecycle API calls.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	// RetryLimit is the number of retries for idempotent (GET) lifecycle
	// calls. Mutating calls are never retried.
	RetryLimit int `env:"API_RETRY_LIMIT" envDefault:"2"`

	// ListLimit is the default page size for bulk task listing.
	ListLimit int `env:"API_LIST_LIMIT" envDefault:"50"`
}

// Sanitize applies guardrails to server configuration values.
func (s *ServerConfig) Sanitize() {
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.RetryLimit < 0 {
		s.RetryLimit = 0
	}
	if s.ListLimit <= 0 {
		s.ListLimit = 50
	}
}
