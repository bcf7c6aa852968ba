// Package store holds the authoritative in-memory collection of task
// aggregates and the reducer that folds stream events into it. All mutation
// is funneled through one mutex; the stream engine is the only event-side
// writer, lifecycle callers apply confirmed results through the named
// mutation methods.
package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/slidesmith/slidesmith-go/internal/errors"

	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/observability/statsd"
)

// ChangeFunc observes store mutations. It is invoked after the mutation
// commits, outside the store lock, with the id of the affected task.
type ChangeFunc func(taskID string)

// Options bundles dependencies for NewStore.
type Options struct {
	Logger *slog.Logger

	// Now overrides the time source, for tests.
	Now func() time.Time

	// OnChange, when set, is called after every committed mutation.
	OnChange ChangeFunc

	// Metrics receives event counters when set.
	Metrics statsd.Sink
}

// Store is the in-memory task collection. Tasks are kept newest-first; sample
// order within a task is insertion order and is never reordered.
type Store struct {
	mu       sync.Mutex
	tasks    []*model.Task
	byID     map[string]*model.Task
	dropped  int64
	logger   *slog.Logger
	now      func() time.Time
	onChange ChangeFunc
	metrics  statsd.Sink
}

// NewStore creates an empty task store.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		byID:     make(map[string]*model.Task),
		logger:   logger,
		now:      now,
		onChange: opts.OnChange,
		metrics:  opts.Metrics,
	}
}

// Upsert inserts a task at the front of the collection, or replaces an
// existing task in place. Used for optimistic creation and snapshot loads.
func (s *Store) Upsert(task *model.Task) error {
	if task == nil || strings.TrimSpace(task.ID) == "" {
		return apperrors.Validation("task id is required")
	}

	cp := task.Clone()

	s.mu.Lock()
	if existing, ok := s.byID[task.ID]; ok {
		for i, t := range s.tasks {
			if t == existing {
				s.tasks[i] = cp
				break
			}
		}
	} else {
		s.tasks = append([]*model.Task{cp}, s.tasks...)
	}
	s.byID[task.ID] = cp
	s.mu.Unlock()

	s.notify(task.ID)
	return nil
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(taskID string) (*model.Task, error) {
	s.mu.Lock()
	task, ok := s.byID[taskID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NotFoundf("task %q not found", taskID)
	}
	cp := task.Clone()
	s.mu.Unlock()
	return cp, nil
}

// List returns copies of all tasks, newest first. A non-empty filter keeps
// only tasks whose prompt, id, or status contains it, case-insensitively.
func (s *Store) List(filter string) []*model.Task {
	query := strings.ToLower(strings.TrimSpace(filter))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if query != "" && !matchesQuery(task, query) {
			continue
		}
		out = append(out, task.Clone())
	}
	return out
}

func matchesQuery(task *model.Task, query string) bool {
	return strings.Contains(strings.ToLower(task.Prompt), query) ||
		strings.Contains(strings.ToLower(task.ID), query) ||
		strings.Contains(strings.ToLower(string(task.Status)), query)
}

// Snapshot returns copies of all tasks, newest first.
func (s *Store) Snapshot() []*model.Task {
	return s.List("")
}

// Len returns the number of tasks held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Delete removes a task after a confirmed lifecycle delete call. Stream
// events never delete; this is the only removal path.
func (s *Store) Delete(taskID string) error {
	s.mu.Lock()
	task, ok := s.byID[taskID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NotFoundf("task %q not found", taskID)
	}
	delete(s.byID, taskID)
	for i, t := range s.tasks {
		if t == task {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(taskID)
	return nil
}

// Rename updates a task's prompt after a confirmed lifecycle rename call.
func (s *Store) Rename(taskID, prompt string) error {
	s.mu.Lock()
	task, ok := s.byID[taskID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NotFoundf("task %q not found", taskID)
	}
	task.Prompt = prompt
	task.UpdatedAt = model.Timestamp{Time: s.now()}
	s.mu.Unlock()

	s.notify(taskID)
	return nil
}

// Apply folds one stream event into the store. Events for unknown tasks are
// dropped: the store never creates an aggregate from a bare stream event.
func (s *Store) Apply(ev model.StreamEvent) {
	s.mu.Lock()
	task, ok := s.byID[ev.TaskID]
	if !ok {
		s.dropped++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.Count("store.dropped_events", 1, nil)
		}
		s.logger.Debug("dropping event for unknown task",
			"type", string(ev.Type), "task_id", ev.TaskID)
		return
	}

	changed := reduce(task, ev, s.now())
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Count("store.events_applied", 1,
			map[string]string{"kind": string(ev.Type)})
	}
	if changed {
		s.notify(ev.TaskID)
	}
}

// DroppedEvents reports how many events were discarded for lacking a
// resolvable task.
func (s *Store) DroppedEvents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Store) notify(taskID string) {
	if s.onChange != nil {
		s.onChange(taskID)
	}
}
