package bench

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/justjake/querybench/pkg/observability"
	"github.com/justjake/querybench/pkg/profile"
	"github.com/justjake/querybench/pkg/runner"
	"github.com/justjake/querybench/pkg/scenario"
	"github.com/justjake/querybench/pkg/stats"
)

// hottestFunctions is how many functions a profile summary keeps.
const hottestFunctions = 5

// runScenario profiles st, summarizes any call graph it has and then
// measures or loads its timing sweep.
func (s *Session) runScenario(ctx context.Context, st *scenario.Setting) error {
	ctx, span := s.tracer().Start(ctx, "querybench.scenario",
		trace.WithAttributes(observability.ScenarioAttributes(st.Index, st.SelectStatement())...))
	defer span.End()

	err := s.executeScenario(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("query %d: %w", st.Index, err)
	}
	return nil
}

func (s *Session) executeScenario(ctx context.Context, st *scenario.Setting) error {
	if err := os.MkdirAll(s.path(st.BaseDir()), 0755); err != nil {
		return fmt.Errorf("failed to create scenario dir: %w", err)
	}

	if s.Config.GenerateCallgrind {
		if err := s.profileScenario(ctx, st); err != nil {
			return err
		}
	}
	s.summarizeProfile(st)

	return s.timingSweep(ctx, st)
}

// timingSweep runs the binary once per table length and records the
// printed timings. With plots disabled it loads the timings of an earlier
// run instead, when there are any.
func (s *Session) timingSweep(ctx context.Context, st *scenario.Setting) error {
	timingsFile := s.path(st.ExecutionTimesFile())

	if !s.Config.GeneratePlots {
		times, err := stats.ReadTimings(timingsFile)
		if errors.Is(err, os.ErrNotExist) {
			s.Logger.Debug("no recorded timings", "query", st.Index, "path", timingsFile)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load timings: %w", err)
		}
		st.SetExecutionTimes(times)
		return nil
	}

	times := make([]float64, 0, len(st.TableLengths))
	var params string
	for _, length := range st.TableLengths {
		params = st.PlotParams(length)
		ms, err := s.measure(ctx, st, length, params)
		if err != nil {
			return err
		}
		times = append(times, ms)
	}
	st.SetExecutionTimes(times)

	if err := writeParamsFile(s.path(st.PlotParamsFile()), params); err != nil {
		return err
	}
	if err := stats.WriteTimings(timingsFile, times); err != nil {
		return err
	}

	s.Logger.Info("finished timing sweep",
		"query", st.Index,
		"execution_times_ms", times)
	return nil
}

func (s *Session) measure(ctx context.Context, st *scenario.Setting, length int, params string) (float64, error) {
	ctx, span := s.tracer().Start(ctx, "querybench.measure",
		trace.WithAttributes(attribute.Int(observability.AttrTableLength, length)))
	defer span.End()

	command := s.binary + " " + params
	out, err := s.Runner.Run(ctx, command, runner.WithEnv(s.Config.BenchmarkEnv()...))
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("table length %d: %w", length, err)
	}

	ms, err := ParseTiming(command, out)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("table length %d: %w", length, err)
	}

	s.Logger.Debug("measured execution time",
		"query", st.Index,
		"table_length", length,
		"execution_time_ms", ms)
	return ms, nil
}

// profileScenario renders the call graph of one profiling run.
func (s *Session) profileScenario(ctx context.Context, st *scenario.Setting) error {
	params := st.CallgrindParams()
	if err := writeParamsFile(s.path(st.CallgrindParamsFile()), params); err != nil {
		return err
	}

	job := profile.Job{
		Binary:  s.binary,
		Params:  params,
		OutFile: s.path(st.CallgrindOutFile()),
		LogFile: s.path(st.ValgrindLogFile()),
		DotFile: s.path(st.CallgrindDotFile()),
		SVGFile: s.path(st.CallgrindSVGFile()),
	}
	if err := s.profiler().Run(ctx, job); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	s.Logger.Info("finished callgrind run",
		"query", st.Index,
		"svg", job.SVGFile)
	return nil
}

// summarizeProfile attaches the hottest functions of an existing call
// graph to st. A missing or unreadable graph leaves st unchanged.
func (s *Session) summarizeProfile(st *scenario.Setting) {
	summary, err := profile.SummarizeFile(s.path(st.CallgrindDotFile()), hottestFunctions)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.Logger.Warn("failed to summarize call graph", "query", st.Index, "error", err)
		return
	}
	st.Profile = summary
	s.Logger.Debug("summarized call graph",
		"query", st.Index,
		"nodes", summary.Nodes,
		"hottest", summary.Top())
}

func (s *Session) profiler() *profile.Callgrind {
	if s.Profiler != nil {
		return s.Profiler
	}
	return &profile.Callgrind{Runner: s.Runner, Env: s.Config.BenchmarkEnv()}
}

func writeParamsFile(path, params string) error {
	text, err := scenario.FormatParamsFile(params)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write params file: %w", err)
	}
	return nil
}
