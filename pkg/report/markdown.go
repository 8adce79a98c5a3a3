package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/justjake/querybench/pkg/scenario"
	"github.com/justjake/querybench/pkg/stats"
)

// Markdown renders the BENCHMARK.md summary. The output directory listing
// is read from outputDir when it is non-empty.
func (r *Report) Markdown(outputDir string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.title())
	if r.SessionID != "" {
		fmt.Fprintf(&b, "**Session ID:** `%s`\n\n", r.SessionID)
	}
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", r.Generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Host:** %s/%s, %d cores, %s RAM\n\n",
		r.Specs.Platform, r.Specs.Architecture, r.Specs.CPUCores, ramString(r.Specs))
	if r.Reference != nil {
		fmt.Fprintf(&b, "**Reference:** %s on %s/%s\n\n",
			r.Reference.Timestamp, r.Reference.Platform, r.Reference.Architecture)
	}

	if len(r.Configuration) > 0 {
		b.WriteString("## Configuration\n\n")
		b.WriteString("| Setting | Value |\n")
		b.WriteString("|---------|-------|\n")
		for _, c := range r.Configuration {
			fmt.Fprintf(&b, "| %s | `%s` |\n", c.Name, c.Value)
		}
		b.WriteString("\n")
	}

	rows := StatisticsRows(r.Scenarios)
	counts := StatusCounts(rows)
	b.WriteString("## Comparison with Reference\n\n")
	b.WriteString("| Status | Timings |\n")
	b.WriteString("|--------|---------|\n")
	for _, s := range []Status{StatusImproved, StatusNotChanged, StatusDeteriorated, StatusUnknown} {
		fmt.Fprintf(&b, "| %s | %d |\n", s, counts[s])
	}
	b.WriteString("\n")

	b.WriteString("## Results by Query\n\n")
	b.WriteString("| Query | Statement | Rows | Time (ms) | Throughput (rows/min) | Status | Speedup |\n")
	b.WriteString("|-------|-----------|------|-----------|-----------------------|--------|---------|\n")
	statements := make(map[int]string, len(r.Scenarios))
	for _, s := range r.Scenarios {
		statements[s.Index] = s.SelectStatement()
	}
	for _, row := range rows {
		if row.Separator {
			continue
		}
		fmt.Fprintf(&b, "| %d | `%s` | %d | %s | %s | %s | %s |\n",
			row.QueryIndex, statements[row.QueryIndex], row.TableLength,
			row.ExecutionTime, row.Throughput, row.Status, row.Speedup)
	}
	b.WriteString("\n")

	if hot := hottest(r.Scenarios); len(hot) > 0 {
		b.WriteString("## Hottest Functions\n\n")
		b.WriteString("| Query | Function | Inclusive | Self |\n")
		b.WriteString("|-------|----------|-----------|------|\n")
		for _, line := range hot {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if outputDir != "" {
		b.WriteString("## Output Files\n\n")
		b.WriteString("| File | Description |\n")
		b.WriteString("|------|-------------|\n")

		files, _ := os.ReadDir(outputDir)
		for _, file := range files {
			name := file.Name()
			if file.IsDir() {
				name += "/"
			}
			fmt.Fprintf(&b, "| `%s` | %s |\n", name, describeOutputFile(name))
		}
	}

	return b.String()
}

// WriteMarkdown writes the summary into outputDir.
func (r *Report) WriteMarkdown(outputDir string) (string, error) {
	path := filepath.Join(outputDir, MarkdownFileName)
	if err := os.WriteFile(path, []byte(r.Markdown(outputDir)), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func hottest(settings []*scenario.Setting) []string {
	var lines []string
	for _, s := range settings {
		if s.Profile == nil || len(s.Profile.Hottest) == 0 {
			continue
		}
		fn := s.Profile.Hottest[0]
		lines = append(lines, fmt.Sprintf("| %d | `%s` | %.2f%% | %.2f%% |\n", s.Index, fn.Name, fn.Total, fn.Self))
	}
	return lines
}

func ramString(specs stats.HostSpecs) string {
	if specs.RAMBytes > 0 {
		return humanize.IBytes(specs.RAMBytes)
	}
	return fmt.Sprintf("%d GB", specs.RAMGB)
}

// describeOutputFile returns a human-readable description for an output file.
func describeOutputFile(filename string) string {
	descriptions := map[string]string{
		MarkdownFileName:              "This benchmark summary",
		HTMLFileName:                  "HTML report with plots, call graphs and comparison tables",
		CombinedPlotFileName:          "Execution time plots of every query in one image",
		ArchiveFileName:               "Statistics and callgrind call graphs of this run",
		ArchiveFileName + ".b2sum":    "BLAKE2b-256 digest of the archive",
		MetricsFileName:               "Prometheus textfile with run timings",
		stats.FileName:                "Statistics of this run",
		stats.LegacyFileName:          "Statistics of this run (legacy text format)",
		"ref_" + stats.FileName:       "Statistics of the reference run",
		"ref_" + stats.LegacyFileName: "Statistics of the reference run (legacy text format)",
	}

	if desc, ok := descriptions[filename]; ok {
		return desc
	}

	if strings.HasPrefix(filename, "query_") && strings.HasSuffix(filename, "/") {
		idx := strings.TrimSuffix(strings.TrimPrefix(filename, "query_"), "/")
		return fmt.Sprintf("Parameters, timings, plot and call graph of query %s", idx)
	}
	return ""
}
