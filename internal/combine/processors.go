package combine

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/eventlog-tools/distqual/internal/platform/storage"
)

const (
	runtimePropertiesName = "runtime.properties"
	rawMetricsDirName     = "raw_metrics"
)

// copyRuntimeProperties copies the runtime properties file from the first
// item that has one; every later item is skipped (first-writer-wins).
func (c *Combiner) copyRuntimeProperties(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error {
	if acc.runtimePropsCopied {
		return nil
	}
	files, err := c.gw.ListFiles(ctx, itemDir.URI)
	if err != nil {
		return fmt.Errorf("list %s: %w", itemDir.URI, err)
	}
	for _, file := range files {
		if file.Name != runtimePropertiesName {
			continue
		}
		if err := c.copyFile(ctx, file.URI, filepath.Join(combinedDir, file.Name)); err != nil {
			return err
		}
		acc.runtimePropsCopied = true
		return nil
	}
	return nil
}

// mergeTabular buffers every CSV file's rows into the accumulator, keyed by
// filename. Nothing is written until the final flush.
func (c *Combiner) mergeTabular(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error {
	files, err := c.gw.ListFiles(ctx, itemDir.URI)
	if err != nil {
		return fmt.Errorf("list %s: %w", itemDir.URI, err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name, ".csv") {
			continue
		}
		rc, err := c.gw.Open(ctx, file.URI)
		if err != nil {
			return err
		}
		reader := csv.NewReader(rc)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("parse tabular file %s: %w", file.URI, err)
		}
		acc.addTable(file.Name, rows)
	}
	return nil
}

// mergeStructured extends the accumulator with every JSON file's records.
// A file whose top level is not a list of records fails the whole combine.
func (c *Combiner) mergeStructured(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error {
	files, err := c.gw.ListFiles(ctx, itemDir.URI)
	if err != nil {
		return fmt.Errorf("list %s: %w", itemDir.URI, err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name, ".json") {
			continue
		}
		rc, err := c.gw.Open(ctx, file.URI)
		if err != nil {
			return err
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("read structured file %s: %w", file.URI, err)
		}
		records, err := decodeRecordList(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", file.URI, err)
		}
		acc.addRecords(file.Name, records)
	}
	return nil
}

// decodeRecordList validates the raw content as a JSON list of records and
// returns the elements unparsed. The bytes are never decoded into Go
// values, so integer precision and string content survive the merge.
func decodeRecordList(raw []byte) ([]json.RawMessage, error) {
	if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '[' {
		return nil, fmt.Errorf("%w: top level is not a list", ErrMalformedRecordFile)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecordFile, err)
	}
	for _, elem := range list {
		if t := bytes.TrimSpace(elem); len(t) == 0 || t[0] != '{' {
			return nil, fmt.Errorf("%w: list element is not a record", ErrMalformedRecordFile)
		}
	}
	return list, nil
}

// appendLogs appends each log file's bytes to the correspondingly named
// combined file immediately, in item-visitation order.
func (c *Combiner) appendLogs(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error {
	files, err := c.gw.ListFiles(ctx, itemDir.URI)
	if err != nil {
		return fmt.Errorf("list %s: %w", itemDir.URI, err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name, ".log") {
			continue
		}
		rc, err := c.gw.Open(ctx, file.URI)
		if err != nil {
			return err
		}
		dst, err := os.OpenFile(filepath.Join(combinedDir, file.Name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			_ = rc.Close()
			return fmt.Errorf("append log %s: %w", file.Name, err)
		}
		_, copyErr := io.Copy(dst, rc)
		_ = rc.Close()
		if err := dst.Close(); err != nil && copyErr == nil {
			copyErr = err
		}
		if copyErr != nil {
			return fmt.Errorf("append log %s: %w", file.Name, copyErr)
		}
	}
	return nil
}

// copyRawMetrics copies the item's raw_metrics subtree into the combined
// tree verbatim. Cross-item collisions resolve last-write-wins.
func (c *Combiner) copyRawMetrics(ctx context.Context, itemDir storage.FileInfo, combinedDir string, acc *accumulator) error {
	dirs, err := c.gw.ListDirectories(ctx, itemDir.URI)
	if err != nil {
		return fmt.Errorf("list %s: %w", itemDir.URI, err)
	}
	for _, dir := range dirs {
		if dir.Name != rawMetricsDirName {
			continue
		}
		return c.copyTree(ctx, dir.URI, filepath.Join(combinedDir, rawMetricsDirName))
	}
	return nil
}

func (c *Combiner) copyTree(ctx context.Context, srcURI, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dstDir, err)
	}
	files, err := c.gw.ListFiles(ctx, srcURI)
	if err != nil {
		return fmt.Errorf("list %s: %w", srcURI, err)
	}
	for _, file := range files {
		if err := c.copyFile(ctx, file.URI, filepath.Join(dstDir, file.Name)); err != nil {
			return err
		}
	}
	dirs, err := c.gw.ListDirectories(ctx, srcURI)
	if err != nil {
		return fmt.Errorf("list %s: %w", srcURI, err)
	}
	for _, dir := range dirs {
		if err := c.copyTree(ctx, dir.URI, filepath.Join(dstDir, dir.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Combiner) copyFile(ctx context.Context, srcURI, dstPath string) error {
	rc, err := c.gw.Open(ctx, srcURI)
	if err != nil {
		return err
	}
	defer rc.Close()
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	if _, err := io.Copy(dst, rc); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy %s: %w", srcURI, err)
	}
	return dst.Close()
}
