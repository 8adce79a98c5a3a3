// Package bench runs a benchmark session: it builds the benchmark binary,
// drives every query scenario through timing and profiling runs, and
// publishes statistics, plots and reports into the output directory.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/justjake/querybench/pkg/config"
	"github.com/justjake/querybench/pkg/observability"
	"github.com/justjake/querybench/pkg/profile"
	"github.com/justjake/querybench/pkg/report"
	"github.com/justjake/querybench/pkg/runner"
	"github.com/justjake/querybench/pkg/scenario"
	"github.com/justjake/querybench/pkg/stats"
)

// RunRecorder stores a finished run, e.g. in the results database.
type RunRecorder interface {
	RecordRun(ctx context.Context, doc *stats.Document, recordedAt time.Time) error
}

// Session is one benchmark invocation. Everything the run touches hangs
// off it; nothing is process-global.
type Session struct {
	// ID identifies the session in statistics, metrics and traces.
	ID string

	Config *config.RunConfig
	Logger *slog.Logger
	Runner *runner.Runner

	// Profiler runs the callgrind pipeline. Nil uses the tools on PATH.
	Profiler *profile.Callgrind

	Metrics *observability.Metrics
	Tracer  trace.Tracer

	// Recorder, when set, receives the statistics of the finished run.
	Recorder RunRecorder

	// Browser opens the HTML report when OpenHTML is set.
	Browser func(path string) error

	// Now is the session clock.
	Now func() time.Time

	// SummaryWriter receives the rendered terminal summary. Nil disables it.
	SummaryWriter io.Writer

	// Populated while running.
	Specs     stats.HostSpecs
	Settings  []*scenario.Setting
	binary    string
	document  *stats.Document
	reference *stats.Header
	refFile   string
}

// Result lists what a finished session produced.
type Result struct {
	SessionID      string
	Settings       []*scenario.Setting
	StatisticsFile string
	HTMLFile       string
	MarkdownFile   string
	ArchiveFile    string
	DigestFile     string
	Digest         string
	MetricsFile    string
	Report         *report.Report
}

// NewSession creates a session for cfg with a fresh ID.
func NewSession(cfg *config.RunConfig, logger *slog.Logger) *Session {
	id := xid.New().String()
	logger = logger.With("session_id", id)
	return &Session{
		ID:      id,
		Config:  cfg,
		Logger:  logger,
		Runner:  runner.New(logger),
		Metrics: observability.NewMetrics(),
		Tracer:  otel.Tracer("querybench"),
		Browser: report.Open,
		Now:     time.Now,
	}
}

// Run executes the whole session. The first failure aborts it.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	ctx, span := s.tracer().Start(ctx, "querybench.run",
		trace.WithAttributes(attribute.String(observability.AttrSessionID, s.ID)))
	defer span.End()

	result, err := s.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *Session) run(ctx context.Context) (*Result, error) {
	cfg := s.Config

	settings, err := scenario.Enumerate(cfg.ScenarioParams())
	if err != nil {
		return nil, err
	}
	s.Settings = settings

	s.Logger.Info("starting benchmark session",
		"scenarios", len(settings),
		"table_lengths", cfg.PlotTableLengths,
		"generate_plots", cfg.GeneratePlots,
		"generate_callgrind", cfg.GenerateCallgrind,
		"output_dir", cfg.OutputDir)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	specs, err := stats.CollectHostSpecs(ctx)
	if err != nil {
		s.Logger.Warn("host probe incomplete", "error", err)
	}
	s.Specs = specs
	s.Metrics.RecordRun(s.ID, specs.Architecture, specs.Platform)

	err = s.phase(ctx, "build", func(ctx context.Context) error {
		b := &runner.Builder{Runner: s.Runner, BinaryPath: cfg.BinaryPath, BuildCommand: cfg.BuildCommand}
		binary, err := b.Build(ctx, cfg.ForceBuild)
		s.binary = binary
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.phase(ctx, "scenarios", func(ctx context.Context) error {
		for i, st := range settings {
			s.Logger.Info("running scenario",
				"query", st.Index,
				"statement", st.SelectStatement(),
				"progress", fmt.Sprintf("%d/%d", i+1, len(settings)))
			if err := s.runScenario(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{SessionID: s.ID, Settings: settings}

	if err := s.phase(ctx, "consolidate", func(ctx context.Context) error {
		return s.consolidate(result)
	}); err != nil {
		return nil, err
	}

	if err := s.phase(ctx, "plot", func(ctx context.Context) error {
		return s.renderPlots()
	}); err != nil {
		return nil, err
	}

	if err := s.phase(ctx, "report", func(ctx context.Context) error {
		return s.writeReports(result)
	}); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, result); err != nil {
		return nil, err
	}

	s.Logger.Info("benchmark session finished",
		"report", result.HTMLFile,
		"archive", result.ArchiveFile,
		"digest", result.Digest)
	return result, nil
}

// phase runs fn inside a span and records its duration.
func (s *Session) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer().Start(ctx, "querybench."+name,
		trace.WithAttributes(attribute.String(observability.AttrPhase, name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.Metrics.RecordPhase(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// path resolves a name relative to the output directory.
func (s *Session) path(name string) string {
	return filepath.Join(s.Config.OutputDir, name)
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Session) tracer() trace.Tracer {
	if s.Tracer == nil {
		return otel.Tracer("querybench")
	}
	return s.Tracer
}
