// Package command assembles the subprocess invocation for one work item.
// Resolution is a pure function over an immutable template, so concurrent
// tasks never share mutable argument state.
package command

import (
	"strings"

	"github.com/eventlog-tools/distqual/internal/domain"
	"github.com/eventlog-tools/distqual/internal/platform/storage"
)

const logConfigFlag = "-Dlog4j.configuration"

// Template is the fixed per-run part of the invocation. Dependency and
// log-config staging must already have happened; Resolve only rewrites
// paths to their staged worker-local copies.
type Template struct {
	JavaExec       string
	JVMArgs        []string
	Dependencies   []string
	LogConfigFile  string
	MainClass      string
	ToolArgs       []string
	ExtraClasspath []string
}

// LocateFunc maps the base name of a distributed file to its staged
// worker-local path.
type LocateFunc func(name string) string

// Resolve produces the full argument vector for one item. The template is
// not mutated.
func Resolve(t Template, item domain.WorkItem, locate LocateFunc) []string {
	classpath := make([]string, 0, len(t.Dependencies)+len(t.ExtraClasspath))
	for _, dep := range t.Dependencies {
		classpath = append(classpath, locate(storage.Base(dep)))
	}
	classpath = append(classpath, t.ExtraClasspath...)

	jvmArgs := make([]string, len(t.JVMArgs))
	copy(jvmArgs, t.JVMArgs)
	if t.LogConfigFile != "" {
		local := locate(storage.Base(t.LogConfigFile))
		for i, arg := range jvmArgs {
			if strings.Contains(arg, logConfigFlag) {
				jvmArgs[i] = logConfigFlag + "=file:" + local
			}
		}
	}

	argv := make([]string, 0, len(jvmArgs)+len(t.ToolArgs)+7)
	argv = append(argv, t.JavaExec)
	argv = append(argv, jvmArgs...)
	argv = append(argv, "-cp", strings.Join(classpath, ":"), t.MainClass)
	argv = append(argv, t.ToolArgs...)
	argv = append(argv, "--output-directory", item.OutputDir, item.InputPath)
	return argv
}
