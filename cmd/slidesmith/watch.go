package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/slidesmith/slidesmith-go/internal/bootstrap"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/store"
	"github.com/slidesmith/slidesmith-go/internal/stream"
	"github.com/slidesmith/slidesmith-go/internal/util"
)

// runWatch connects the sync engine, seeds it from a bulk snapshot, and
// prints a status line per store change until interrupted.
func runWatch(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	id := fs.String("id", "", "watch a single task instead of the whole snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := bootstrap.InitMetrics(cmdCtx.Config.Metrics, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = metrics.Close() }()

	printer := &changePrinter{}
	st := store.NewStore(store.Options{
		Logger:   cmdCtx.Logger,
		OnChange: printer.print,
		Metrics:  metrics,
	})
	printer.store = st

	engine := stream.NewEngine(stream.EngineOptions{
		Config:  cmdCtx.Config.Stream,
		Store:   st,
		Logger:  cmdCtx.Logger,
		Metrics: metrics,
	})

	snapCtx, cancel := contextWithTimeout(cmdCtx)
	tasks, err := cmdCtx.Client.ListTasks(snapCtx)
	cancel()
	if err != nil {
		return err
	}
	if loadErr := engine.LoadSnapshot(tasks); loadErr != nil {
		return loadErr
	}
	if *id != "" {
		engine.Registry().Subscribe(*id)
	}

	cmdCtx.Logger.InfoContext(ctx, "watching tasks",
		"count", st.Len(), "subscriptions", len(engine.Registry().IDs()))

	runErr := engine.Run(ctx)
	if closeErr := engine.Manager().Close(); closeErr != nil {
		cmdCtx.Logger.Debug("close stream connection", "error", closeErr)
	}
	if runErr != nil && !errors.Is(runErr, ctx.Err()) {
		return runErr
	}
	return nil
}

// changePrinter serializes change output; store change hooks may fire from
// lifecycle callers as well as the reducer loop.
type changePrinter struct {
	mu    sync.Mutex
	store *store.Store
}

func (p *changePrinter) print(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	task, err := p.store.Get(taskID)
	if err != nil {
		fmt.Fprintf(os.Stdout, "%s\tdeleted\n", taskID)
		return
	}
	fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%s\n",
		task.ID, task.Status, util.FormatProgress(task.Progress), summary(task))
}

func summary(task *model.Task) string {
	if task.Error != "" {
		return "error: " + task.Error
	}
	if task.Artifact != nil {
		return "artifact: " + string(task.Artifact.Type)
	}
	done := 0
	for _, sample := range task.Samples {
		if sample.Status == model.TaskStatusCompleted {
			done++
		}
	}
	return fmt.Sprintf("%d/%d samples done", done, len(task.Samples))
}
