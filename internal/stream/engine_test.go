package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidesmith/slidesmith-go/config"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/store"
)

// streamServer is a minimal stand-in for the generation service's stream
// endpoint: it upgrades connections, records the subscribe messages each
// connection delivers, and lets tests push frames or kill connections.
type streamServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	srv      *httptest.Server

	mu    sync.Mutex
	conns []*serverConn
}

type serverConn struct {
	conn *websocket.Conn

	mu         sync.Mutex
	subscribed []string
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	ss := &streamServer{t: t}
	ss.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ss.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sc := &serverConn{conn: conn}
		ss.mu.Lock()
		ss.conns = append(ss.conns, sc)
		ss.mu.Unlock()
		sc.readLoop()
	}))
	t.Cleanup(ss.srv.Close)
	return ss
}

func (sc *serverConn) readLoop() {
	for {
		_, data, err := sc.conn.ReadMessage()
		if err != nil {
			return
		}
		var req model.SubscribeRequest
		if jsonErr := json.Unmarshal(data, &req); jsonErr == nil && req.Type == "subscribe" {
			sc.mu.Lock()
			sc.subscribed = append(sc.subscribed, req.TaskID)
			sc.mu.Unlock()
		}
	}
}

func (sc *serverConn) subscriptions() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]string, len(sc.subscribed))
	copy(out, sc.subscribed)
	return out
}

func (sc *serverConn) sendEvent(t *testing.T, ev model.StreamEvent) {
	t.Helper()
	require.NoError(t, sc.conn.WriteJSON(ev))
}

func (sc *serverConn) sendRaw(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, sc.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (ss *streamServer) url() string {
	return "ws" + strings.TrimPrefix(ss.srv.URL, "http")
}

func (ss *streamServer) connCount() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.conns)
}

func (ss *streamServer) conn(t *testing.T, i int) *serverConn {
	t.Helper()
	require.Eventually(t, func() bool { return ss.connCount() > i },
		2*time.Second, 10*time.Millisecond, "connection %d never arrived", i)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.conns[i]
}

func testStreamConfig(url string) config.StreamConfig {
	cfg := config.StreamConfig{
		URL:              url,
		ReconnectDelay:   50 * time.Millisecond,
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     time.Second,
		EventBuffer:      64,
	}
	return cfg
}

func startEngine(t *testing.T, cfg config.StreamConfig) (*Engine, *store.Store) {
	t.Helper()
	st := store.NewStore(store.Options{})
	engine := NewEngine(EngineOptions{Config: cfg, Store: st})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Log("engine did not stop in time")
		}
	})
	return engine, st
}

func waitForContent(t *testing.T, st *store.Store, taskID, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		task, err := st.Get(taskID)
		if err != nil || len(task.Samples) == 0 {
			return false
		}
		return task.Samples[0].Content == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngineAppliesStreamEventsInArrivalOrder(t *testing.T) {
	ss := newStreamServer(t)
	engine, st := startEngine(t, testStreamConfig(ss.url()))

	require.NoError(t, engine.LoadSnapshot([]*model.Task{
		{ID: "j1", Status: model.TaskStatusRunning, Samples: []model.Sample{{ID: "j1-sample-0"}}},
	}))

	sc := ss.conn(t, 0)
	require.Eventually(t, func() bool {
		return len(sc.subscriptions()) >= 1
	}, 2*time.Second, 10*time.Millisecond, "snapshot subscription never arrived")

	sc.sendEvent(t, model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: "Hello"})
	sc.sendEvent(t, model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: " World"})

	waitForContent(t, st, "j1", "Hello"+model.ChunkSeparator+" World")
}

func TestReconnectResubscribesExactSet(t *testing.T) {
	ss := newStreamServer(t)
	engine, st := startEngine(t, testStreamConfig(ss.url()))

	first := ss.conn(t, 0)
	require.Eventually(t, func() bool {
		return engine.Manager().State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	engine.Registry().Subscribe("j4")
	require.Eventually(t, func() bool {
		return len(first.subscriptions()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Abnormal close: the client must redial and replay its set before any
	// further events are processed.
	require.NoError(t, engine.Manager().Close())

	second := ss.conn(t, 1)
	require.Eventually(t, func() bool {
		return len(second.subscriptions()) >= 1
	}, 2*time.Second, 10*time.Millisecond, "resubscribe never arrived")
	assert.Equal(t, []string{"j4"}, second.subscriptions(),
		"resubscribe must cover exactly the prior set, no duplicates, no omissions")

	// Events on the new connection still reach the store.
	require.NoError(t, st.Upsert(&model.Task{ID: "j4", Status: model.TaskStatusRunning}))
	second.sendEvent(t, model.StreamEvent{Type: model.EventChunk, TaskID: "j4", Content: "post-reconnect"})
	waitForContent(t, st, "j4", "post-reconnect")

	assert.Equal(t, int64(1), engine.Manager().Reconnects())
}

func TestUnparseableFrameIsDroppedWithoutReconnect(t *testing.T) {
	ss := newStreamServer(t)
	engine, st := startEngine(t, testStreamConfig(ss.url()))

	require.NoError(t, engine.LoadSnapshot([]*model.Task{
		{ID: "j1", Status: model.TaskStatusRunning, Samples: []model.Sample{{ID: "j1-sample-0"}}},
	}))

	sc := ss.conn(t, 0)
	sc.sendRaw(t, `{"type":`)
	sc.sendRaw(t, `{"type":"telemetry","task_id":"j1"}`)
	sc.sendEvent(t, model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: "still alive"})

	waitForContent(t, st, "j1", "still alive")
	assert.Equal(t, int64(2), engine.Manager().BadFrames())
	assert.Equal(t, int64(0), engine.Manager().Reconnects(), "bad frames must not tear down the connection")
	assert.Equal(t, 1, ss.connCount())
}

func TestSendWhileDisconnectedIsSilentNoOp(t *testing.T) {
	m := NewManager(ManagerOptions{Config: testStreamConfig("ws://127.0.0.1:0/ws")})
	assert.NoError(t, m.Send(model.NewSubscribeRequest("j1")))
	assert.Equal(t, StateDisconnected, m.State())
}

func TestTrackTaskInsertsOptimisticallyAndSubscribes(t *testing.T) {
	st := store.NewStore(store.Options{})
	engine := NewEngine(EngineOptions{
		Config: testStreamConfig("ws://127.0.0.1:0/ws"),
		Store:  st,
	})

	task, err := engine.TrackTask(
		model.CreateTaskResponse{TaskID: "t7", Status: "created"},
		model.CreateTaskRequest{Prompt: "roadmap deck", SampleCount: 2},
	)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatusRunning, task.Status)
	require.Len(t, task.Samples, 2)
	assert.Equal(t, "t7-sample-0", task.Samples[0].ID)
	assert.Equal(t, "t7-sample-1", task.Samples[1].ID)

	stored, err := st.Get("t7")
	require.NoError(t, err)
	assert.Equal(t, "roadmap deck", stored.Prompt)
	assert.True(t, engine.Registry().Subscribed("t7"))
}

func TestTrackTaskDefaultsToOneSample(t *testing.T) {
	st := store.NewStore(store.Options{})
	engine := NewEngine(EngineOptions{
		Config: testStreamConfig("ws://127.0.0.1:0/ws"),
		Store:  st,
	})

	task, err := engine.TrackTask(
		model.CreateTaskResponse{TaskID: "t8"},
		model.CreateTaskRequest{Prompt: "one pager"},
	)
	require.NoError(t, err)
	assert.Len(t, task.Samples, 1)
}

func TestLoadSnapshotSeedsStoreAndSubscriptions(t *testing.T) {
	st := store.NewStore(store.Options{})
	engine := NewEngine(EngineOptions{
		Config: testStreamConfig("ws://127.0.0.1:0/ws"),
		Store:  st,
	})

	require.NoError(t, engine.LoadSnapshot([]*model.Task{
		{ID: "live", Status: model.TaskStatusRunning},
		{ID: "done", Status: model.TaskStatusCompleted},
	}))

	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []string{"live"}, engine.Registry().IDs())
}
