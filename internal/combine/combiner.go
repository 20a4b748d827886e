// Package combine walks every worker's output directory on shared storage
// and merges the per-item artifacts into one combined result tree: tabular
// files are row-concatenated, structured record lists are extended, text
// logs are byte-appended, raw metrics are copied verbatim and the runtime
// properties file is taken from the first item only.
package combine

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/eventlog-tools/distqual/internal/platform/storage"
)

type Combiner struct {
	gw            storage.Gateway
	outputFolder  string
	outputDirName string
	logger        *slog.Logger
}

func NewCombiner(gw storage.Gateway, outputFolder, outputDirName string, logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{
		gw:            gw,
		outputFolder:  outputFolder,
		outputDirName: outputDirName,
		logger:        logger,
	}
}

type processorFunc func(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error

// processors returns the fixed ordered list of file-kind passes run once
// per item directory.
func (c *Combiner) processors() []processorFunc {
	return []processorFunc{
		c.copyRuntimeProperties,
		c.mergeTabular,
		c.mergeStructured,
		c.appendLogs,
		c.copyRawMetrics,
	}
}

// Combine merges every item directory under executorOutputURI into
// <outputFolder>/<outputDirName>. The combined tree is rebuilt from
// scratch, so repeating a combine over the same inputs yields the same
// bytes.
func (c *Combiner) Combine(ctx context.Context, executorOutputURI string) error {
	combinedDir := filepath.Join(c.outputFolder, c.outputDirName)
	if err := os.RemoveAll(combinedDir); err != nil {
		return fmt.Errorf("reset combined dir %s: %w", combinedDir, err)
	}
	if err := os.MkdirAll(combinedDir, 0o755); err != nil {
		return fmt.Errorf("create combined dir %s: %w", combinedDir, err)
	}

	c.logger.Info("combining results", "from", executorOutputURI, "to", combinedDir)

	itemDirs, err := c.gw.ListDirectories(ctx, executorOutputURI)
	if err != nil {
		return fmt.Errorf("list executor output: %w", err)
	}

	acc := newAccumulator()
	for _, itemDir := range itemDirs {
		target, ok, err := c.findToolOutputDir(ctx, itemDir)
		if err != nil {
			return err
		}
		if !ok {
			// The item's subprocess failed before writing anything.
			c.logger.Warn("skipping empty item directory", "dir", itemDir.URI)
			continue
		}
		for _, proc := range c.processors() {
			if err := proc(ctx, target, combinedDir, acc); err != nil {
				return fmt.Errorf("combine %s: %w", target.URI, err)
			}
		}
	}

	if err := c.flushTables(combinedDir, acc); err != nil {
		return err
	}
	return c.flushRecords(combinedDir, acc)
}

// findToolOutputDir locates the analysis tool's output directory inside one
// item directory. Prefers the configured name, falls back to the first
// subdirectory; an empty item directory is reported as absent, not failed.
func (c *Combiner) findToolOutputDir(ctx context.Context, itemDir storage.FileInfo) (storage.FileInfo, bool, error) {
	inner, err := c.gw.ListDirectories(ctx, itemDir.URI)
	if err != nil {
		return storage.FileInfo{}, false, fmt.Errorf("list item dir %s: %w", itemDir.URI, err)
	}
	if len(inner) == 0 {
		return storage.FileInfo{}, false, nil
	}
	for _, dir := range inner {
		if dir.Name == c.outputDirName {
			return dir, true, nil
		}
	}
	return inner[0], true, nil
}

func (c *Combiner) flushTables(combinedDir string, acc *accumulator) error {
	for _, name := range sortedKeys(acc.tables) {
		path := filepath.Join(combinedDir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("write combined table %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.WriteAll(acc.tables[name]); err != nil {
			_ = f.Close()
			return fmt.Errorf("write combined table %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write combined table %s: %w", path, err)
		}
	}
	return nil
}

// flushRecords writes each merged record list as an indented JSON array.
// The records are concatenated and reindented as raw bytes; no value in
// them is ever re-encoded.
func (c *Combiner) flushRecords(combinedDir string, acc *accumulator) error {
	for _, name := range sortedKeys(acc.records) {
		path := filepath.Join(combinedDir, name)
		var array bytes.Buffer
		array.WriteByte('[')
		for i, record := range acc.records[name] {
			if i > 0 {
				array.WriteByte(',')
			}
			array.Write(record)
		}
		array.WriteByte(']')
		var indented bytes.Buffer
		if err := json.Indent(&indented, array.Bytes(), "", "  "); err != nil {
			return fmt.Errorf("encode combined records %s: %w", path, err)
		}
		if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write combined records %s: %w", path, err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
