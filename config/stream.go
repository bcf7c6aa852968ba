package config

import (
	"strings"
	"time"
)

// StreamConfig contains the WebSocket stream configuration.
type StreamConfig struct {
	// URL is the WebSocket endpoint delivering live task events
	// (e.g., "ws://localhost:8000/ws").
	URL string `env:"WS_URL" envDefault:"ws://localhost:8000/ws"`

	// ReconnectDelay is the fixed delay between a connection loss and the
	// next dial attempt. Retries are unbounded.
	ReconnectDelay time.Duration `env:"WS_RECONNECT_DELAY" envDefault:"3s"`

	// HandshakeTimeout bounds the WebSocket dial + upgrade.
	HandshakeTimeout time.Duration `env:"WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// WriteTimeout bounds each outbound control frame write.
	WriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`

	// EventBuffer is the capacity of the inbound event channel between the
	// read pump and the reducer loop.
	EventBuffer int `env:"WS_EVENT_BUFFER" envDefault:"256"`
}

// Sanitize applies guardrails to stream configuration values.
func (s *StreamConfig) Sanitize() {
	s.URL = strings.TrimSpace(s.URL)
	if s.ReconnectDelay <= 0 {
		s.ReconnectDelay = 3 * time.Second
	}
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = 10 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 5 * time.Second
	}
	if s.EventBuffer <= 0 {
		s.EventBuffer = 256
	}
}
