package stream

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/slidesmith/slidesmith-go/config"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/observability/statsd"
	"github.com/slidesmith/slidesmith-go/internal/store"
)

// EngineOptions bundles dependencies for NewEngine.
type EngineOptions struct {
	Config config.StreamConfig
	Store  *store.Store
	Logger *slog.Logger

	// Metrics is forwarded to the connection manager when set.
	Metrics statsd.Sink
}

// Engine ties the connection manager, the subscription registry, and the
// task store together. One goroutine consumes the inbound event channel and
// applies each event synchronously, so the store sees a single stream-side
// writer and events for a task land in arrival order.
type Engine struct {
	store    *store.Store
	manager  *Manager
	registry *Registry
	logger   *slog.Logger
}

// NewEngine wires up an engine around the given store.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:  opts.Store,
		logger: logger,
	}
	e.manager = NewManager(ManagerOptions{
		Config:  opts.Config,
		Logger:  logger,
		Metrics: opts.Metrics,
		OnConnect: func() {
			e.registry.Resubscribe()
		},
	})
	e.registry = NewRegistry(RegistryOptions{
		Sender: e.manager,
		Logger: logger,
	})
	return e
}

// Store returns the engine's task store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Manager returns the connection manager, for state inspection.
func (e *Engine) Manager() *Manager {
	return e.manager
}

// Registry returns the subscription registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Run starts the connection manager and the reducer loop, blocking until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.manager.Run(ctx)
	})
	g.Go(func() error {
		return e.reduceLoop(ctx)
	})

	return g.Wait()
}

// reduceLoop is the single consumer of the inbound event channel.
func (e *Engine) reduceLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.manager.Events():
			e.store.Apply(ev)
		}
	}
}

// TrackTask performs the optimistic client-side insert for a freshly created
// task and subscribes to its updates. The placeholder samples use the
// server's id scheme so the first stream events merge by key instead of
// duplicating aggregates.
func (e *Engine) TrackTask(resp model.CreateTaskResponse, req model.CreateTaskRequest) (*model.Task, error) {
	now := model.Now()
	sampleCount := req.SampleCount
	if sampleCount <= 0 {
		sampleCount = 1
	}

	task := &model.Task{
		ID:             resp.TaskID,
		Prompt:         req.Prompt,
		Status:         model.TaskStatusRunning,
		Samples:        model.NewPlaceholderSamples(resp.TaskID, sampleCount, now.Time),
		CreatedAt:      now,
		UpdatedAt:      now,
		Pages:          req.Pages,
		OutputType:     req.OutputType,
		UploadedFileID: req.UploadedFileID,
		Options:        req.Options,
	}
	if err := e.store.Upsert(task); err != nil {
		return nil, err
	}

	e.registry.Subscribe(task.ID)
	return task, nil
}

// LoadSnapshot seeds the store from a bulk task listing and subscribes to
// every task that is still live.
func (e *Engine) LoadSnapshot(tasks []*model.Task) error {
	for _, task := range tasks {
		if err := e.store.Upsert(task); err != nil {
			return err
		}
	}
	e.registry.TrackSnapshot(tasks)
	e.logger.Info("loaded task snapshot", "count", len(tasks))
	return nil
}
