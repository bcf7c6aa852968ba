package stream

import (
	"log/slog"
	"sync"

	"github.com/slidesmith/slidesmith-go/internal/domain/model"
)

// Sender writes one control message to the live connection. Implemented by
// Manager; sends while disconnected are silent no-ops, which is why the
// registry replays its whole set on every reconnect.
type Sender interface {
	Send(v any) error
}

// RegistryOptions bundles dependencies for NewRegistry.
type RegistryOptions struct {
	Sender Sender
	Logger *slog.Logger
}

// Registry tracks the set of task ids the client wants live updates for.
// The server forgets subscriptions on disconnect, so the set must be
// re-asserted after every reconnect. Subscriptions last for the client
// session; there is no unsubscribe.
type Registry struct {
	sender Sender
	logger *slog.Logger

	mu  sync.Mutex
	ids map[string]struct{}
	// order preserves first-subscribe order so replay is deterministic.
	order []string
}

// NewRegistry creates an empty subscription registry.
func NewRegistry(opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sender: opts.Sender,
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Subscribe registers interest in a task and sends the subscribe frame if
// currently connected. Subscribing to an already-subscribed id is a no-op.
func (r *Registry) Subscribe(taskID string) {
	if taskID == "" {
		return
	}

	r.mu.Lock()
	if _, ok := r.ids[taskID]; ok {
		r.mu.Unlock()
		return
	}
	r.ids[taskID] = struct{}{}
	r.order = append(r.order, taskID)
	r.mu.Unlock()

	r.send(taskID)
}

// Subscribed reports whether the task id is in the registry.
func (r *Registry) Subscribed(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[taskID]
	return ok
}

// IDs returns the subscribed task ids in first-subscribe order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resubscribe replays a subscribe frame for every tracked id. Wired to the
// connection manager's on-connect hook so the replay happens before any
// event from the new connection is processed.
func (r *Registry) Resubscribe() {
	ids := r.IDs()
	for _, id := range ids {
		r.send(id)
	}
	if len(ids) > 0 {
		r.logger.Info("resubscribed to tasks", "count", len(ids))
	}
}

// TrackSnapshot subscribes to every task in a bulk snapshot that is still
// live (idle or running). Completed and failed tasks emit no further events.
func (r *Registry) TrackSnapshot(tasks []*model.Task) {
	for _, task := range tasks {
		if task.Status == model.TaskStatusRunning || task.Status == model.TaskStatusIdle {
			r.Subscribe(task.ID)
		}
	}
}

func (r *Registry) send(taskID string) {
	if r.sender == nil {
		return
	}
	if err := r.sender.Send(model.NewSubscribeRequest(taskID)); err != nil {
		r.logger.Warn("send subscribe request failed", "task_id", taskID, "error", err)
	}
}
