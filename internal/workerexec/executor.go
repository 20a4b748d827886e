// Package workerexec runs one analysis subprocess per work item. A failing
// child process is reported as data, never as an error, so a bad item can
// not abort its siblings.
package workerexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/eventlog-tools/distqual/internal/domain"
)

type Executor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Run executes argv as a child process and captures stdout, stderr, exit
// code and elapsed time. The narration in Logs has the same shape whether
// the process succeeded or failed, so the dispatcher can write one manifest
// format for both.
func (e *Executor) Run(ctx context.Context, item domain.WorkItem, argv []string) domain.ExecutionResult {
	res := domain.ExecutionResult{
		Item:      item,
		StartedAt: time.Now(),
	}
	res.Logs = append(res.Logs, fmt.Sprintf("Starting execution of command: %s", strings.Join(argv, " ")))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Elapsed = time.Since(res.StartedAt)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	switch {
	case err == nil:
		res.ExitCode = 0
		res.Logs = append(res.Logs, fmt.Sprintf("Command succeeded with stdout:\n%s", res.Stdout))
		if res.Stderr != "" {
			res.Logs = append(res.Logs, fmt.Sprintf("Command stderr:\n%s", res.Stderr))
		}
	default:
		res.ExitCode = exitCode(err)
		res.Logs = append(res.Logs, fmt.Sprintf("Command failed with exit code %d.", res.ExitCode))
		if res.Stdout != "" {
			res.Logs = append(res.Logs, fmt.Sprintf("Command stdout:\n%s", res.Stdout))
		}
		if res.Stderr != "" {
			res.Logs = append(res.Logs, fmt.Sprintf("Command stderr:\n%s", res.Stderr))
		}
		e.logger.Warn("analysis subprocess failed", "item", item.ID, "exit_code", res.ExitCode)
	}
	res.Logs = append(res.Logs, fmt.Sprintf("Total processing time: %s", res.Elapsed))
	return res
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	// The process never started (missing binary, I/O error).
	return -1
}
