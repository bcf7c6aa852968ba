package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/slidesmith/slidesmith-go/internal/api"
	"github.com/slidesmith/slidesmith-go/internal/domain/model"
	"github.com/slidesmith/slidesmith-go/internal/store"
	"github.com/slidesmith/slidesmith-go/internal/util"
)

const lifecycleTimeout = 2 * time.Minute

func writef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

func runCreate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "generation prompt (required)")
	samples := fs.Int("samples", 1, "number of parallel samples")
	pages := fs.String("pages", "", "requested page count")
	outputType := fs.String("output-type", "", "requested output type")
	fileID := fs.String("file-id", "", "uploaded reference file id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := model.CreateTaskRequest{
		Prompt:         *prompt,
		SampleCount:    *samples,
		Pages:          *pages,
		OutputType:     *outputType,
		UploadedFileID: *fileID,
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	resp, err := cmdCtx.Client.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	writef(os.Stdout, "%s\t%s\n", resp.TaskID, resp.Status)
	return nil
}

func runList(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	filter := fs.String("filter", "", "case-insensitive substring over prompt, id, or status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	tasks, err := cmdCtx.Client.ListTasks(ctx)
	if err != nil {
		return err
	}

	// Filtering runs through the store so the CLI and the watch view agree
	// on match semantics.
	st := store.NewStore(store.Options{Logger: cmdCtx.Logger})
	for _, task := range tasks {
		if upsertErr := st.Upsert(task); upsertErr != nil {
			return upsertErr
		}
	}

	return printTaskTable(st.List(*filter))
}

func printTaskTable(tasks []*model.Task) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSAMPLES\tPROMPT")
	for _, task := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			task.ID, task.Status, util.FormatProgress(task.Progress),
			len(task.Samples), util.Truncate(task.Prompt, 60))
	}
	return w.Flush()
}

func runGet(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	task, err := cmdCtx.Client.GetTask(ctx, *id)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	writef(os.Stdout, "%s\n", encoded)
	return nil
}

func runRename(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	prompt := fs.String("prompt", "", "new prompt (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	ack, err := cmdCtx.Client.RenameTask(ctx, *id, *prompt)
	if err != nil {
		return err
	}
	writef(os.Stdout, "%s\t%s\n", *id, ack.Status)
	return nil
}

func runDelete(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	ack, err := cmdCtx.Client.DeleteTask(ctx, *id)
	if err != nil {
		return err
	}
	writef(os.Stdout, "%s\t%s\n", *id, ack.Status)
	return nil
}

func runUpload(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return errors.New("at least one file path is required")
	}

	files := make([]api.UploadFile, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		files = append(files, api.UploadFile{Name: filepath.Base(path), Reader: f})
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	resp, err := cmdCtx.Client.UploadFiles(ctx, files)
	if err != nil {
		return err
	}
	for _, file := range resp.Files {
		writef(os.Stdout, "%s\t%s\t%d\n", file.FileID, file.Filename, file.Size)
	}
	return nil
}

func runDownload(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	id := fs.String("id", "", "task id (required)")
	sample := fs.Int("sample", -1, "sample index for multi-sample tasks")
	workspace := fs.Bool("workspace", false, "download the zipped workspace instead of the output file")
	out := fs.String("out", "", "output path (defaults to the server-provided filename)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmdCtx)
	defer cancel()

	var (
		dl  *api.Download
		err error
	)
	if *workspace {
		dl, err = cmdCtx.Client.DownloadWorkspace(ctx, *id, *sample)
	} else {
		dl, err = cmdCtx.Client.DownloadArtifact(ctx, *id, *sample)
	}
	if err != nil {
		return err
	}
	defer func() { _ = dl.Body.Close() }()

	target := *out
	if target == "" {
		target = dl.Filename
	}
	if target == "" {
		target = *id + ".out"
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, dl.Body)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	writef(os.Stdout, "%s\t%d bytes\n", target, written)
	return nil
}

func contextWithTimeout(cmdCtx *commandContext) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(cmdCtx.Ctx, lifecycleTimeout)
}
