package combine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/eventlog-tools/distqual/internal/platform/storage"
)

const testOutputDirName = "qualification_output"

// writeItem lays out one item's output directory under the executor output
// root, mirroring what a worker writes on shared storage.
func writeItem(t *testing.T, root, itemID string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, itemID, testOutputDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func newTestCombiner(t *testing.T, outputFolder string) *Combiner {
	t.Helper()
	return NewCombiner(storage.NewLocalGateway(), outputFolder, testOutputDirName, nil)
}

func TestCombineTabularHeaderOnce(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{
		"app_summary.csv": "App Name,Duration\nalpha,100\n",
	})
	writeItem(t, root, "app-2", map[string]string{
		"app_summary.csv": "App Name,Duration\nbeta,200\n",
	})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "app_summary.csv"))
	if err != nil {
		t.Fatalf("read combined csv: %v", err)
	}
	want := "App Name,Duration\nalpha,100\nbeta,200\n"
	if string(raw) != want {
		t.Fatalf("combined csv = %q, want %q", raw, want)
	}
}

func TestCombineStructuredRecords(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{"report.json": `[{"id":1}]`})
	writeItem(t, root, "app-2", map[string]string{"report.json": `[{"id":2}]`})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "report.json"))
	if err != nil {
		t.Fatalf("read combined json: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode combined json: %v", err)
	}
	want := []map[string]any{{"id": float64(1)}, {"id": float64(2)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("combined records = %v, want %v", got, want)
	}
}

func TestCombineStructuredRecordsPreserveContent(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{
		"report.json": `[{"query":"a < b & c > d","appId":9007199254740993}]`,
	})
	writeItem(t, root, "app-2", map[string]string{
		"report.json": `[{"query":"plain","appId":2}]`,
	})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "report.json"))
	if err != nil {
		t.Fatalf("read combined json: %v", err)
	}
	got := string(raw)
	// Integers above 2^53 must survive the merge exactly.
	if !strings.Contains(got, "9007199254740993") {
		t.Fatalf("large integer lost precision:\n%s", got)
	}
	if !strings.Contains(got, `"a < b & c > d"`) {
		t.Fatalf("string content altered:\n%s", got)
	}
	if strings.Contains(got, `<`) || strings.Contains(got, `&`) {
		t.Fatalf("string content HTML-escaped:\n%s", got)
	}
}

func TestCombineMalformedRecordFileFails(t *testing.T) {
	root := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{"report.json": `{"id":1}`})

	c := newTestCombiner(t, t.TempDir())
	err := c.Combine(context.Background(), root)
	if !errors.Is(err, ErrMalformedRecordFile) {
		t.Fatalf("Combine() err=%v, want ErrMalformedRecordFile", err)
	}
}

func TestCombineRuntimePropertiesFirstWriterWins(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{"runtime.properties": "build=first\n"})
	writeItem(t, root, "app-2", map[string]string{"runtime.properties": "build=second\n"})
	writeItem(t, root, "app-3", map[string]string{"runtime.properties": "build=third\n"})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "runtime.properties"))
	if err != nil {
		t.Fatalf("read runtime.properties: %v", err)
	}
	if string(raw) != "build=first\n" {
		t.Fatalf("runtime.properties = %q, want first item's content", raw)
	}
}

func TestCombineLogsAppendedInVisitationOrder(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{"tool.log": "line from app-1\n"})
	writeItem(t, root, "app-2", map[string]string{"tool.log": "line from app-2\n"})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "tool.log"))
	if err != nil {
		t.Fatalf("read combined log: %v", err)
	}
	want := "line from app-1\nline from app-2\n"
	if string(raw) != want {
		t.Fatalf("combined log = %q, want %q", raw, want)
	}
}

func TestCombineRawMetricsCopiedVerbatim(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{
		"raw_metrics/stage-0/metrics.bin": "\x00\x01\x02",
	})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "raw_metrics", "stage-0", "metrics.bin"))
	if err != nil {
		t.Fatalf("read copied metrics: %v", err)
	}
	if string(raw) != "\x00\x01\x02" {
		t.Fatalf("metrics content = %q", raw)
	}
}

func TestCombineSkipsEmptyItemDirectory(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{"app_summary.csv": "App Name\nalpha\n"})
	// app-2's subprocess failed before writing anything.
	if err := os.MkdirAll(filepath.Join(root, "app-2"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("Combine() err=%v", err)
	}

	raw, err := os.ReadFile(filepath.Join(outputFolder, testOutputDirName, "app_summary.csv"))
	if err != nil {
		t.Fatalf("read combined csv: %v", err)
	}
	if string(raw) != "App Name\nalpha\n" {
		t.Fatalf("combined csv = %q", raw)
	}
}

func TestCombineIdempotent(t *testing.T) {
	root := t.TempDir()
	outputFolder := t.TempDir()
	writeItem(t, root, "app-1", map[string]string{
		"app_summary.csv": "App Name,Duration\nalpha,100\n",
		"report.json":     `[{"id":1}]`,
		"tool.log":        "first\n",
	})
	writeItem(t, root, "app-2", map[string]string{
		"app_summary.csv": "App Name,Duration\nbeta,200\n",
		"report.json":     `[{"id":2}]`,
		"tool.log":        "second\n",
	})

	c := newTestCombiner(t, outputFolder)
	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("first Combine() err=%v", err)
	}
	first := readTree(t, filepath.Join(outputFolder, testOutputDirName))

	if err := c.Combine(context.Background(), root); err != nil {
		t.Fatalf("second Combine() err=%v", err)
	}
	second := readTree(t, filepath.Join(outputFolder, testOutputDirName))

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("combine is not idempotent:\nfirst=%v\nsecond=%v", first, second)
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		tree[rel] = string(raw)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return tree
}
