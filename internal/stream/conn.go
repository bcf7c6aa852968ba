// Package stream owns the live side of the task synchronization engine: the
// WebSocket connection manager, the subscription registry that survives
// reconnects, and the single-consumer loop that folds inbound events into
// the task store.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slidesmith/slidesmith-go/config"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/observability/statsd"
)

// State describes the connection manager's lifecycle state.
type State string

const (
	// StateDisconnected means no connection exists and none is being dialed.
	StateDisconnected State = "disconnected"
	// StateConnecting means a dial attempt is in flight.
	StateConnecting State = "connecting"
	// StateConnected means the stream is live.
	StateConnected State = "connected"
)

// ManagerOptions bundles dependencies for NewManager.
type ManagerOptions struct {
	Config config.StreamConfig
	Logger *slog.Logger

	// OnConnect fires on every transition into StateConnected, before any
	// inbound frame is read. The subscription registry hooks this to replay
	// its set.
	OnConnect func()

	// Metrics receives connection health counters when set.
	Metrics statsd.Sink
}

// Manager owns exactly one physical stream connection at a time. It dials,
// detects loss, schedules a fixed-delay reconnect, and forwards decoded
// events to the engine. Frames that fail to decode are dropped without
// closing the connection.
type Manager struct {
	cfg       config.StreamConfig
	logger    *slog.Logger
	dialer    *websocket.Dialer
	onConnect func()
	metrics   statsd.Sink

	events chan model.StreamEvent

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	badFrames  int64
	reconnects int64
}

// NewManager creates a connection manager. Call Run to start it.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    opts.Config,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.Config.HandshakeTimeout,
		},
		onConnect: opts.OnConnect,
		metrics:   opts.Metrics,
		events:    make(chan model.StreamEvent, opts.Config.EventBuffer),
		state:     StateDisconnected,
	}
}

// Events returns the channel of decoded inbound events. The engine is its
// single consumer.
func (m *Manager) Events() <-chan model.StreamEvent {
	return m.events
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnects reports how many times the manager re-entered StateConnected
// after the initial connection.
func (m *Manager) Reconnects() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// BadFrames reports how many inbound frames were dropped as unparseable.
func (m *Manager) BadFrames() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.badFrames
}

// Send serializes v and writes it to the live connection. While not
// connected it is a silent no-op: the subscription registry replays control
// messages after the next reconnect, so dropping here is safe.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected || m.conn == nil {
		m.logger.Debug("dropping outbound message while disconnected")
		return nil
	}

	if err := m.conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout)); err != nil {
		return err
	}
	return m.conn.WriteJSON(v)
}

// Close closes the live connection, if any. The read pump observes the
// closure; with the run context still active this forces a reconnect.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Run dials and maintains the connection until ctx is cancelled. After every
// loss it waits the configured fixed delay before the next attempt; retries
// are unbounded. Exactly one reconnect timer is ever pending because this
// loop is the only scheduler.
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			m.setState(StateDisconnected)
			return err
		}

		m.setState(StateConnecting)
		conn, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
		if err != nil {
			m.setState(StateDisconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.WarnContext(ctx, "stream dial failed",
				"url", m.cfg.URL, "error", err)
			if waitErr := m.waitReconnect(ctx); waitErr != nil {
				return waitErr
			}
			continue
		}

		m.attach(conn, attempt > 0)
		m.logger.InfoContext(ctx, "stream connected", "url", m.cfg.URL)
		attempt++

		if m.onConnect != nil {
			m.onConnect()
		}

		readErr := m.readPump(ctx, conn)
		m.detach(conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.WarnContext(ctx, "stream disconnected", "error", readErr)

		if waitErr := m.waitReconnect(ctx); waitErr != nil {
			return waitErr
		}
	}
}

// readPump reads frames until the connection fails. Decode failures are
// non-fatal: the frame is dropped, counted, and reading continues.
func (m *Manager) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, decodeErr := model.DecodeStreamEvent(data)
		if decodeErr != nil {
			m.mu.Lock()
			m.badFrames++
			m.mu.Unlock()
			if m.metrics != nil {
				m.metrics.Count("stream.bad_frames", 1, nil)
			}
			m.logger.WarnContext(ctx, "dropping unparseable stream frame",
				"error", decodeErr)
			continue
		}

		select {
		case m.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) waitReconnect(ctx context.Context) error {
	timer := time.NewTimer(m.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) attach(conn *websocket.Conn, isReconnect bool) {
	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	if isReconnect {
		m.reconnects++
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Gauge("stream.connected", 1, nil)
		if isReconnect {
			m.metrics.Count("stream.reconnects", 1, nil)
		}
	}
}

func (m *Manager) detach(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Gauge("stream.connected", 0, nil)
	}

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		m.logger.Debug("close stream connection", "error", err)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
