// Package profile runs the callgrind profiling pipeline and summarizes the
// resulting call graph.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/justjake/querybench/pkg/runner"
)

// Callgrind drives valgrind, gprof2dot and dot to turn one benchmark
// invocation into an SVG call graph.
type Callgrind struct {
	Runner *runner.Runner

	// Env is passed to the profiled binary (e.g. LD_LIBRARY_PATH).
	Env []string

	// Tool binaries. Empty values use the names found on PATH.
	Valgrind  string
	Gprof2dot string
	Dot       string
}

// Job describes one profiling run. All paths are absolute or relative to
// the runner's working directory.
type Job struct {
	Binary  string
	Params  string
	OutFile string // raw callgrind trace
	LogFile string // valgrind diagnostics
	DotFile string
	SVGFile string
}

// ValgrindCommand is the profiler invocation for job.
func (c *Callgrind) ValgrindCommand(job Job) string {
	args := []string{
		or(c.Valgrind, "valgrind"),
		"--callgrind-out-file=" + job.OutFile,
		"--log-file=" + job.LogFile,
		"--tool=callgrind",
		"--dump-instr=yes",
		"--collect-jumps=yes",
		"--simulate-cache=yes",
		"--collect-atstart=no",
		job.Binary,
		job.Params,
	}
	return strings.Join(args, " ")
}

// Run profiles job and renders its call graph. Every step must succeed.
func (c *Callgrind) Run(ctx context.Context, job Job) error {
	if _, err := c.Runner.Run(ctx, c.ValgrindCommand(job), runner.WithEnv(c.Env...)); err != nil {
		return fmt.Errorf("valgrind: %w", err)
	}

	gprof := fmt.Sprintf("%s --format=callgrind --output=%s %s", or(c.Gprof2dot, "gprof2dot"), job.DotFile, job.OutFile)
	if _, err := c.Runner.Run(ctx, gprof); err != nil {
		return fmt.Errorf("gprof2dot: %w", err)
	}

	dot := fmt.Sprintf("%s -Tsvg %s -o %s", or(c.Dot, "dot"), job.DotFile, job.SVGFile)
	if _, err := c.Runner.Run(ctx, dot); err != nil {
		return fmt.Errorf("dot: %w", err)
	}
	return nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
