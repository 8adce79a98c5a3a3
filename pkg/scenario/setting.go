// Package scenario describes the benchmarked query scenarios: their query
// shape, parameter sweep, command lines and artifact paths.
package scenario

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/justjake/querybench/pkg/profile"
)

// Artifact file names inside a scenario directory.
const (
	PlotParamsName      = "plot_benchmark_params.txt"
	ExecutionTimesName  = "plot_execution_times.txt"
	PlotSVGName         = "plot_benchmark.svg"
	CallgrindParamsName = "callgrind_params.txt"
	CallgrindSVGName    = "callgrind.svg"
	CallgrindOutName    = "callgrind.out"
	CallgrindDotName    = "callgrind.dot"
	RefCallgrindSVGName = "ref_callgrind.svg"
	ValgrindLogName     = "valgrind.log"
)

// CallgrindSamples is the sample count used for every profiling run.
const CallgrindSamples = 1

// Setting is one query scenario. Configuration fields are fixed at
// construction; ExecutionTimes and ReferenceExecutionTimes are filled in
// as the run progresses.
type Setting struct {
	Index         int
	WhereExpr     string
	ResultColumns int
	TableColumns  int
	MinValue      float64
	MaxValue      float64

	TableLengths         []int
	PlotSamples          int
	CallgrindSamples     int
	CallgrindTableLength int

	// ExecutionTimes holds one duration in milliseconds per table length.
	ExecutionTimes []float64

	// ReferenceExecutionTimes is loaded from the reference statistics.
	ReferenceExecutionTimes []float64

	// Profile summarizes the callgrind call graph, when one is available.
	Profile *profile.Summary
}

// SetExecutionTimes replaces the measured timings with a copy of times.
func (s *Setting) SetExecutionTimes(times []float64) {
	s.ExecutionTimes = slices.Clone(times)
}

// SetReferenceExecutionTimes replaces the reference timings with a copy of times.
func (s *Setting) SetReferenceExecutionTimes(times []float64) {
	s.ReferenceExecutionTimes = slices.Clone(times)
}

// HasCompleteTimings reports whether every table length has a timing.
func (s *Setting) HasCompleteTimings() bool {
	return len(s.ExecutionTimes) == len(s.TableLengths)
}

// ColumnNames returns the result column names: A, B, C, ...
func (s *Setting) ColumnNames() []string {
	names := make([]string, s.ResultColumns)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	return names
}

// SelectStatement is the SQL text the benchmark binary executes.
func (s *Setting) SelectStatement() string {
	return "select " + strings.Join(s.ColumnNames(), ",") + " from T where " + s.WhereExpr
}

// BaseDir is the scenario directory relative to the output directory.
func (s *Setting) BaseDir() string {
	return fmt.Sprintf("query_%d", s.Index)
}

func (s *Setting) file(name string) string {
	return path.Join(s.BaseDir(), name)
}

func (s *Setting) PlotParamsFile() string      { return s.file(PlotParamsName) }
func (s *Setting) ExecutionTimesFile() string  { return s.file(ExecutionTimesName) }
func (s *Setting) PlotSVGFile() string         { return s.file(PlotSVGName) }
func (s *Setting) CallgrindParamsFile() string { return s.file(CallgrindParamsName) }
func (s *Setting) CallgrindSVGFile() string    { return s.file(CallgrindSVGName) }
func (s *Setting) CallgrindOutFile() string    { return s.file(CallgrindOutName) }
func (s *Setting) CallgrindDotFile() string    { return s.file(CallgrindDotName) }
func (s *Setting) RefCallgrindSVGFile() string { return s.file(RefCallgrindSVGName) }
func (s *Setting) ValgrindLogFile() string     { return s.file(ValgrindLogName) }

func (s *Setting) baseParams() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--min-value %s", formatFloat(s.MinValue))
	fmt.Fprintf(&b, " --max-value %s", formatFloat(s.MaxValue))
	fmt.Fprintf(&b, " --num-columns %d", s.TableColumns)
	fmt.Fprintf(&b, " --result-columns '%s'", strings.Join(s.ColumnNames(), ","))
	fmt.Fprintf(&b, " --where-expr '%s'", s.WhereExpr)
	return b.String()
}

// PlotParams is the command line for one timing run at tableLength rows.
func (s *Setting) PlotParams(tableLength int) string {
	return fmt.Sprintf("%s --num-samples %d --table-length %d", s.baseParams(), s.PlotSamples, tableLength)
}

// CallgrindParams is the command line for the profiling run.
func (s *Setting) CallgrindParams() string {
	return fmt.Sprintf("%s --num-samples %d --table-length %d", s.baseParams(), s.CallgrindSamples, s.CallgrindTableLength)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
