package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunManifest is the consolidated batch log: one log block per item, in
// dispatch order, plus the total wall-clock time. Write-once at the end of
// a dispatch.
type RunManifest struct {
	Results   []ExecutionResult
	TotalTime time.Duration
}

// Render produces the manifest file content: per-item log blocks separated
// by blank lines, followed by the total wall-clock line.
func (m RunManifest) Render() string {
	blocks := make([]string, 0, len(m.Results))
	for _, res := range m.Results {
		blocks = append(blocks, strings.Join(res.Logs, "\n"))
	}
	return strings.Join(blocks, "\n\n") + fmt.Sprintf("\nJob took %s to complete", m.TotalTime)
}

func errFieldRequired(name string) error {
	return fmt.Errorf("%s is required", name)
}
