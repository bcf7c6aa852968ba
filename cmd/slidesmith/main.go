// Command slidesmith is a terminal client for the presentation-generation
// service: it creates, lists, renames, and deletes tasks, transfers files,
// and can watch live generation progress over the event stream.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/slidesmith/slidesmith-go/config"
	"github.com/slidesmith/slidesmith-go/internal/api"
	"github.com/slidesmith/slidesmith-go/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Client *api.Client
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		writef(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage()
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	client, err := api.NewClient(api.ClientOptions{Config: cfg.Server, Logger: logger})
	if err != nil {
		logger.ErrorContext(context.Background(), "build api client", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Client: client,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"create": {
			name:        "create",
			description: "Create a generation task from a prompt",
			run:         runCreate,
		},
		"list": {
			name:        "list",
			description: "List tasks, optionally filtered by a substring",
			run:         runList,
		},
		"get": {
			name:        "get",
			description: "Print one task snapshot as JSON",
			run:         runGet,
		},
		"rename": {
			name:        "rename",
			description: "Change a task's prompt",
			run:         runRename,
		},
		"delete": {
			name:        "delete",
			description: "Delete a task",
			run:         runDelete,
		},
		"upload": {
			name:        "upload",
			description: "Upload reference documents and print their file ids",
			run:         runUpload,
		},
		"download": {
			name:        "download",
			description: "Download a task's generated output or workspace archive",
			run:         runDownload,
		},
		"watch": {
			name:        "watch",
			description: "Stream live task updates until interrupted",
			run:         runWatch,
		},
	}
}

func printUsage() {
	writef(os.Stdout, "Usage: slidesmith <command> [flags]\n\n")
	writef(os.Stdout, "Available commands:\n")
	for _, name := range []string{"create", "list", "get", "rename", "delete", "upload", "download", "watch"} {
		c := commands()[name]
		writef(os.Stdout, "  %-10s %s\n", c.name, c.description)
	}
}
