package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eventlog-tools/distqual/internal/command"
)

// Stager distributes dependency artifacts and the log-config file onto the
// workers before dispatch. Staging must complete before any task resolves a
// local path; the coordinator enforces that by ordering, not by a runtime
// check.
type Stager interface {
	Stage(ctx context.Context, paths []string) (command.LocateFunc, error)
}

// LocalStager models the cluster runtime's file distribution for
// single-node runs: the files are already on the local filesystem, so
// staging only verifies they exist and maps base names back to their
// paths.
type LocalStager struct{}

func NewLocalStager() *LocalStager {
	return &LocalStager{}
}

func (s *LocalStager) Stage(ctx context.Context, paths []string) (command.LocateFunc, error) {
	staged := make(map[string]string, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("stage %s: %w", p, err)
		}
		staged[filepath.Base(p)] = p
	}
	return func(name string) string {
		if local, ok := staged[name]; ok {
			return local
		}
		return name
	}, nil
}
