package command

import (
	"reflect"
	"testing"

	"github.com/eventlog-tools/distqual/internal/domain"
)

func stagedAt(dir string) LocateFunc {
	return func(name string) string { return dir + "/" + name }
}

func TestResolveRewritesStagedPaths(t *testing.T) {
	tmpl := Template{
		JavaExec:       "/opt/jdk/bin/java",
		JVMArgs:        []string{"-Xmx8g", "-Dlog4j.configuration=file:/submit/log4j.properties"},
		Dependencies:   []string{"hdfs://nn:8020/deps/tools.jar", "/submit/extra.jar"},
		LogConfigFile:  "/submit/log4j.properties",
		MainClass:      "com.example.qualification.Main",
		ToolArgs:       []string{"--platform", "onprem"},
		ExtraClasspath: []string{"/opt/spark/jars/*"},
	}
	item := domain.WorkItem{
		ID:        "app-1.zstd",
		InputPath: "hdfs://nn:8020/logs/app-1.zstd",
		OutputDir: "hdfs://nn:8020/cache/run/executor_output/app-1.zstd",
	}

	argv := Resolve(tmpl, item, stagedAt("/local/stage"))

	want := []string{
		"/opt/jdk/bin/java",
		"-Xmx8g",
		"-Dlog4j.configuration=file:/local/stage/log4j.properties",
		"-cp", "/local/stage/tools.jar:/local/stage/extra.jar:/opt/spark/jars/*",
		"com.example.qualification.Main",
		"--platform", "onprem",
		"--output-directory", "hdfs://nn:8020/cache/run/executor_output/app-1.zstd",
		"hdfs://nn:8020/logs/app-1.zstd",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("Resolve() = %v, want %v", argv, want)
	}
}

func TestResolveDoesNotMutateTemplate(t *testing.T) {
	tmpl := Template{
		JavaExec:      "java",
		JVMArgs:       []string{"-Dlog4j.configuration=file:/submit/log4j.properties"},
		Dependencies:  []string{"/submit/tools.jar"},
		LogConfigFile: "/submit/log4j.properties",
		MainClass:     "com.example.Main",
	}
	before := make([]string, len(tmpl.JVMArgs))
	copy(before, tmpl.JVMArgs)

	_ = Resolve(tmpl, domain.WorkItem{ID: "a", InputPath: "/logs/a", OutputDir: "/out/a"}, stagedAt("/stage"))
	_ = Resolve(tmpl, domain.WorkItem{ID: "b", InputPath: "/logs/b", OutputDir: "/out/b"}, stagedAt("/stage"))

	if !reflect.DeepEqual(tmpl.JVMArgs, before) {
		t.Fatalf("template JVM args mutated: %v", tmpl.JVMArgs)
	}
}

func TestResolveOutputPairIsLast(t *testing.T) {
	tmpl := Template{
		JavaExec:     "java",
		Dependencies: []string{"/submit/tools.jar"},
		MainClass:    "com.example.Main",
		ToolArgs:     []string{"--per-sql"},
	}
	item := domain.WorkItem{ID: "x", InputPath: "/logs/x", OutputDir: "/out/x"}
	argv := Resolve(tmpl, item, stagedAt("/stage"))

	n := len(argv)
	if argv[n-3] != "--output-directory" || argv[n-2] != "/out/x" || argv[n-1] != "/logs/x" {
		t.Fatalf("output pair misplaced: %v", argv[n-3:])
	}
}
