// Package dispatch partitions the input list across the cluster's
// parallel-map capability and consolidates the per-item outcomes into the
// run manifest.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/eventlog-tools/distqual/internal/domain"
)

// ManifestFileName is the consolidated run log written next to the combined
// output tree.
const ManifestFileName = "distributed_qual_tool.log"

type Dispatcher struct {
	mapper       Mapper
	manifestPath string
	logger       *slog.Logger
}

func NewDispatcher(mapper Mapper, manifestPath string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		mapper:       mapper,
		manifestPath: manifestPath,
		logger:       logger,
	}
}

// Submit runs fn once per item through the parallel-map primitive, writes
// the run manifest and returns every item's result. Item failures are
// already data inside the results; only infrastructure failure of the
// mapper or of the manifest write aborts the run.
func (d *Dispatcher) Submit(ctx context.Context, items []domain.WorkItem, fn TaskFunc) ([]domain.ExecutionResult, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	results, err := d.mapper.Map(ctx, items, fn)
	if err != nil {
		return nil, err
	}
	manifest := domain.RunManifest{
		Results:   results,
		TotalTime: time.Since(start),
	}

	d.logger.Info("saving run manifest", "path", d.manifestPath, "items", len(results))
	if err := os.WriteFile(d.manifestPath, []byte(manifest.Render()), 0o644); err != nil {
		return nil, fmt.Errorf("write run manifest %s: %w", d.manifestPath, err)
	}
	return results, nil
}
