package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/justjake/querybench/pkg/scenario"
	"github.com/justjake/querybench/pkg/stats"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Run-level artifact names linked from the report.
const (
	HTMLFileName         = "index.html"
	MarkdownFileName     = "BENCHMARK.md"
	CombinedPlotFileName = "all_plot_benchmark.svg"
	ArchiveFileName      = "all_benchmark_data.tgz"
	MetricsFileName      = "metrics.prom"
)

// Setting is one configuration value listed in the summary.
type Setting struct {
	Name  string
	Value string
}

// Report is everything needed to render a finished run.
type Report struct {
	Title     string
	SessionID string
	Generated time.Time
	Specs     stats.HostSpecs

	// Reference is the reference run header, when one was found.
	Reference *stats.Header

	Scenarios     []*scenario.Setting
	Configuration []Setting

	// Artifact paths relative to the output directory.
	StatisticsFile    string
	RefStatisticsFile string
	CombinedPlotFile  string
	ArchiveFile       string
}

func (r *Report) title() string {
	if r.Title == "" {
		return "Proofs Benchmarks"
	}
	return r.Title
}

// scenarioRow is one line of the query table.
type scenarioRow struct {
	Index               int
	Statement           string
	PlotParamsFile      string
	PlotSVGFile         string
	CallgrindParamsFile string
	CallgrindSVGFile    string
	CallgrindOutFile    string
	RefCallgrindSVGFile string
	Hottest             string
}

type htmlPage struct {
	Title             string
	Date              string
	SessionID         string
	Scenarios         []scenarioRow
	Rows              []Row
	Specs             stats.HostSpecs
	Reference         *stats.Header
	StatisticsFile    string
	RefStatisticsFile string
	CombinedPlotFile  string
	ArchiveFile       string
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"orUnknown": func(s string) string {
			if s == "" {
				return Unknown
			}
			return s
		},
	}
}

// HTML renders the report page.
func (r *Report) HTML() ([]byte, error) {
	tmpl, err := template.New("index.html.tmpl").Funcs(templateFuncs()).ParseFS(templates, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	page := htmlPage{
		Title:             r.title(),
		Date:              r.Generated.Format(stats.TimestampLayout),
		SessionID:         r.SessionID,
		Rows:              StatisticsRows(r.Scenarios),
		Specs:             r.Specs,
		Reference:         r.Reference,
		StatisticsFile:    r.StatisticsFile,
		RefStatisticsFile: r.RefStatisticsFile,
		CombinedPlotFile:  r.CombinedPlotFile,
		ArchiveFile:       r.ArchiveFile,
	}
	for _, s := range r.Scenarios {
		row := scenarioRow{
			Index:               s.Index,
			Statement:           s.SelectStatement(),
			PlotParamsFile:      s.PlotParamsFile(),
			PlotSVGFile:         s.PlotSVGFile(),
			CallgrindParamsFile: s.CallgrindParamsFile(),
			CallgrindSVGFile:    s.CallgrindSVGFile(),
			CallgrindOutFile:    s.CallgrindOutFile(),
			RefCallgrindSVGFile: s.RefCallgrindSVGFile(),
		}
		if s.Profile != nil && len(s.Profile.Hottest) > 0 {
			top := s.Profile.Hottest[0]
			row.Hottest = fmt.Sprintf("%s (%.2f%%)", top.Name, top.Total)
		}
		page.Scenarios = append(page.Scenarios, row)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the report page to path.
func (r *Report) WriteHTML(path string) error {
	data, err := r.HTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
