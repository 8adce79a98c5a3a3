package bench

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/justjake/querybench/pkg/plot"
	"github.com/justjake/querybench/pkg/report"
	"github.com/justjake/querybench/pkg/stats"
)

// renderPlots renders one chart per scenario and the combined grid.
func (s *Session) renderPlots() error {
	colors := report.Gradient(len(s.Settings))
	for i, st := range s.Settings {
		ok, err := plot.WriteScenario(s.Config.OutputDir, st, colors[i])
		if err != nil {
			return fmt.Errorf("query %d: %w", st.Index, err)
		}
		if !ok {
			s.Logger.Debug("skipping plot without complete timings", "query", st.Index)
		}
	}
	return plot.WriteCombined(s.path(report.CombinedPlotFileName), s.Settings)
}

// newReport collects what the renderers need.
func (s *Session) newReport() *report.Report {
	cfg := s.Config
	return &report.Report{
		SessionID: s.ID,
		Generated: s.now(),
		Specs:     s.Specs,
		Reference: s.reference,
		Scenarios: s.Settings,
		Configuration: []report.Setting{
			{Name: "Binary", Value: s.binary},
			{Name: "Min value", Value: strconv.FormatFloat(cfg.MinValue, 'f', -1, 64)},
			{Name: "Max value", Value: strconv.FormatFloat(cfg.MaxValue, 'f', -1, 64)},
			{Name: "Table columns", Value: strconv.Itoa(cfg.NumTableColumns)},
			{Name: "Result columns", Value: strconv.Itoa(cfg.NumResultColumns)},
			{Name: "Samples", Value: strconv.Itoa(cfg.NumSamples)},
			{Name: "Table lengths", Value: joinInts(cfg.PlotTableLengths)},
			{Name: "Callgrind table length", Value: strconv.Itoa(cfg.CallgrindTableLength)},
			{Name: "Generate plots", Value: strconv.FormatBool(cfg.GeneratePlots)},
			{Name: "Generate callgrind", Value: strconv.FormatBool(cfg.GenerateCallgrind)},
			{Name: "Reference directory", Value: cfg.RefStatisticsDir},
		},
		StatisticsFile:    stats.FileName,
		RefStatisticsFile: s.refFile,
		CombinedPlotFile:  report.CombinedPlotFileName,
		ArchiveFile:       report.ArchiveFileName,
	}
}

// writeReports renders the HTML page, the markdown summary and, when a
// writer is attached, the terminal summary.
func (s *Session) writeReports(result *Result) error {
	r := s.newReport()
	result.Report = r

	result.HTMLFile = s.path(report.HTMLFileName)
	if err := r.WriteHTML(result.HTMLFile); err != nil {
		return err
	}

	mdPath, err := r.WriteMarkdown(s.Config.OutputDir)
	if err != nil {
		return err
	}
	result.MarkdownFile = mdPath

	if s.SummaryWriter != nil {
		if err := r.PrintSummary(s.SummaryWriter, r.Markdown(s.Config.OutputDir), report.TerminalWidth()); err != nil {
			s.Logger.Warn("failed to print summary", "error", err)
		}
	}
	return nil
}

// publish exports metrics, records the run and opens the report.
func (s *Session) publish(ctx context.Context, result *Result) error {
	for _, st := range s.Settings {
		s.Metrics.RecordScenario(st)
	}
	result.MetricsFile = s.path(report.MetricsFileName)
	if err := s.Metrics.WriteTextfile(result.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	if s.Recorder != nil {
		err := s.phase(ctx, "record", func(ctx context.Context) error {
			return s.Recorder.RecordRun(ctx, s.document, s.now())
		})
		if err != nil {
			return err
		}
	}

	if s.Config.OpenHTML && s.Browser != nil {
		if err := s.Browser(result.HTMLFile); err != nil {
			s.Logger.Warn("failed to open report", "path", result.HTMLFile, "error", err)
		}
	}
	return nil
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
