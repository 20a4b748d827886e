package dispatch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eventlog-tools/distqual/internal/domain"
)

// TaskFunc runs one work item to completion. Per-item failures must already
// be converted into the returned ExecutionResult; the function has no error
// path of its own.
type TaskFunc func(ctx context.Context, item domain.WorkItem) domain.ExecutionResult

// Mapper is the cluster's data-parallel execution primitive, consumed at
// its boundary. An error return means the mapping infrastructure itself
// failed and the whole run must abort.
type Mapper interface {
	Map(ctx context.Context, items []domain.WorkItem, fn TaskFunc) ([]domain.ExecutionResult, error)
}

// LocalMapper fans items out across goroutines, one per item, mirroring a
// one-item-per-partition cluster submission. Results come back slotted by
// input index.
type LocalMapper struct{}

func NewLocalMapper() *LocalMapper {
	return &LocalMapper{}
}

func (m *LocalMapper) Map(ctx context.Context, items []domain.WorkItem, fn TaskFunc) ([]domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parallel map: %w", err)
	}
	results := make([]domain.ExecutionResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = fn(gctx, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel map: %w", err)
	}
	return results, nil
}
