package domain

import (
	"strings"
	"time"
)

// WorkItem identifies one input event log and the output directory assigned
// to it on shared storage. Items are created once by the dispatcher and are
// never mutated afterwards.
type WorkItem struct {
	ID        string
	InputPath string
	OutputDir string
}

func (w WorkItem) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return errFieldRequired("work item id")
	}
	if strings.TrimSpace(w.InputPath) == "" {
		return errFieldRequired("work item input path")
	}
	if strings.TrimSpace(w.OutputDir) == "" {
		return errFieldRequired("work item output dir")
	}
	return nil
}

// ExecutionResult is the per-item outcome of one analysis subprocess. The
// output directory is recorded even on failure since partial output may
// exist there.
type ExecutionResult struct {
	Item      WorkItem
	Logs      []string
	ExitCode  int
	Stdout    string
	Stderr    string
	StartedAt time.Time
	Elapsed   time.Duration
}

func (r ExecutionResult) Succeeded() bool {
	return r.ExitCode == 0
}
