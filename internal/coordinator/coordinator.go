// Package coordinator sequences one distributed run: prepare the shared
// storage output root, stage dependencies, dispatch the items, combine the
// per-item outputs and clean up the intermediate tree.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/eventlog-tools/distqual/internal/combine"
	"github.com/eventlog-tools/distqual/internal/command"
	"github.com/eventlog-tools/distqual/internal/config"
	"github.com/eventlog-tools/distqual/internal/dispatch"
	"github.com/eventlog-tools/distqual/internal/domain"
	"github.com/eventlog-tools/distqual/internal/ledger"
	"github.com/eventlog-tools/distqual/internal/platform/storage"
	"github.com/eventlog-tools/distqual/internal/workerexec"
)

const executorOutputDirName = "executor_output"

// Options carries every collaborator explicitly; there is no ambient
// cluster or storage handle.
type Options struct {
	Config        config.Config
	EventLogsPath string
	OutputFolder  string

	Gateway  storage.Gateway
	Mapper   dispatch.Mapper
	Executor *workerexec.Executor
	Stager   Stager

	// ExtraClasspath is appended to every item's classpath after the
	// staged dependencies (worker-local runtime jars).
	ExtraClasspath []string

	// Ledger is optional; nil disables run recording.
	Ledger *ledger.Store

	Logger *slog.Logger
}

type Coordinator struct {
	opts Options
}

func New(opts Options) (*Coordinator, error) {
	if opts.Gateway == nil {
		return nil, errors.New("storage gateway is required")
	}
	if opts.Mapper == nil {
		return nil, errors.New("parallel mapper is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("worker executor is required")
	}
	if opts.Stager == nil {
		return nil, errors.New("stager is required")
	}
	if opts.EventLogsPath == "" {
		return nil, errors.New("event logs path is required")
	}
	if opts.OutputFolder == "" {
		return nil, errors.New("output folder is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{opts: opts}, nil
}

// Run executes the whole batch. Per-item failures are contained inside the
// run manifest; any error returned here is fatal to the run.
func (c *Coordinator) Run(ctx context.Context) error {
	o := c.opts
	if err := Preflight(o.Config.RequiredEnv); err != nil {
		return err
	}
	runID := uuid.NewString()
	start := time.Now()

	executorRoot := storage.Join(o.Config.CacheRoot, filepath.Base(o.OutputFolder), executorOutputDirName)
	// A lingering tree from a previous run must not fail a fresh one.
	if err := o.Gateway.RemoveRecursive(ctx, executorRoot); err != nil {
		o.Logger.Warn("removal of stale executor output failed", "dir", executorRoot, "error", err)
	}
	if err := o.Gateway.EnsureDirectory(ctx, executorRoot); err != nil {
		return fmt.Errorf("prepare executor output root: %w", err)
	}

	files, err := o.Gateway.ListFiles(ctx, o.EventLogsPath)
	if err != nil {
		return fmt.Errorf("list event logs: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no event log files found under %s", o.EventLogsPath)
	}

	// Stage before dispatch: tasks resolve worker-local paths and must
	// never observe an unstaged file.
	stagePaths := append([]string{}, o.Config.Dependencies...)
	if o.Config.LogConfigFile != "" {
		stagePaths = append(stagePaths, o.Config.LogConfigFile)
	}
	locate, err := o.Stager.Stage(ctx, stagePaths)
	if err != nil {
		return fmt.Errorf("stage dependencies: %w", err)
	}

	if err := os.MkdirAll(o.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	items := make([]domain.WorkItem, 0, len(files))
	for _, file := range files {
		items = append(items, domain.WorkItem{
			ID:        file.Name,
			InputPath: file.URI,
			OutputDir: storage.Join(executorRoot, file.Name),
		})
	}
	o.Logger.Info("dispatching batch", "run_id", runID, "items", len(items))

	tmpl := command.Template{
		JavaExec:       o.Config.JavaExec,
		JVMArgs:        o.Config.JVMArgs,
		Dependencies:   o.Config.Dependencies,
		LogConfigFile:  o.Config.LogConfigFile,
		MainClass:      o.Config.MainClass,
		ToolArgs:       o.Config.ToolArgs,
		ExtraClasspath: o.ExtraClasspath,
	}
	fn := func(ctx context.Context, item domain.WorkItem) domain.ExecutionResult {
		argv := command.Resolve(tmpl, item, locate)
		res := o.Executor.Run(ctx, item, argv)
		res.Logs = append([]string{
			fmt.Sprintf("Processing %s", item.InputPath),
			fmt.Sprintf("Executor output directory: %s", item.OutputDir),
		}, res.Logs...)
		return res
	}

	dispatcher := dispatch.NewDispatcher(o.Mapper, filepath.Join(o.OutputFolder, dispatch.ManifestFileName), o.Logger)
	results, err := dispatcher.Submit(ctx, items, fn)
	if err != nil {
		return err
	}

	combiner := combine.NewCombiner(o.Gateway, o.OutputFolder, o.Config.OutputDirName, o.Logger)
	if err := combiner.Combine(ctx, executorRoot); err != nil {
		return err
	}

	if err := o.Gateway.RemoveRecursive(ctx, executorRoot); err != nil {
		o.Logger.Warn("cleanup of intermediate output failed", "dir", executorRoot, "error", err)
	}

	if o.Ledger != nil {
		run := ledger.Run{
			ID:            runID,
			EventLogsPath: o.EventLogsPath,
			OutputFolder:  o.OutputFolder,
			TotalItems:    len(results),
			FailedItems:   countFailed(results),
			WallTime:      time.Since(start),
			CreatedAt:     start,
		}
		if err := o.Ledger.RecordRun(ctx, run, results); err != nil {
			o.Logger.Error("ledger write failed", "run_id", runID, "error", err)
		}
	}
	return nil
}

func countFailed(results []domain.ExecutionResult) int {
	failed := 0
	for _, res := range results {
		if !res.Succeeded() {
			failed++
		}
	}
	return failed
}
