package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justjake/querybench/pkg/profile"
	"github.com/justjake/querybench/pkg/scenario"
	"github.com/justjake/querybench/pkg/stats"
)

func testScenarios(t *testing.T) []*scenario.Setting {
	t.Helper()
	settings, err := scenario.Enumerate(scenario.Params{
		TableLengths:         []int{10, 100},
		CallgrindTableLength: 100,
		PlotSamples:          5,
		MinValue:             -5,
		MaxValue:             5,
		TableColumns:         5,
		ResultColumns:        2,
	})
	require.NoError(t, err)
	return settings[:2]
}

func TestThroughput(t *testing.T) {
	assert.InDelta(t, 60000.0, Throughput(10, 10), 1e-9)
	assert.InDelta(t, 600.0, Throughput(1, 100), 1e-9)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		ref, cur float64
		status   Status
		speedup  string
	}{
		{"faster", 20, 10, StatusImproved, "2.00x"},
		{"slower", 10, 20, StatusDeteriorated, "0.50x"},
		{"equal", 10, 10, StatusNotChanged, "1.00x"},
		{"within tolerance", 10.005, 10, StatusNotChanged, "1.00x"},
		{"just outside tolerance", 10.02, 10, StatusImproved, "1.00x"},
		{"zero current", 10, 0, StatusUnknown, "NaNx"},
		{"zero reference", 0, 10, StatusUnknown, "NaNx"},
		{"both zero", 0, 0, StatusUnknown, "NaNx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(tt.ref, tt.cur)
			assert.Equal(t, tt.status, cmp.Status)
			assert.Equal(t, tt.speedup, FormatSpeedup(cmp.Speedup))
		})
	}
}

func TestFormatThroughput(t *testing.T) {
	assert.Equal(t, "6e+04", FormatThroughput(10, 10))
	assert.Equal(t, Unknown, FormatThroughput(10, 0))
	assert.Equal(t, Unknown, FormatThroughput(10, -1))
}

func TestStatisticsRows_ZeroTiming(t *testing.T) {
	settings := testScenarios(t)
	settings[0].SetExecutionTimes([]float64{0, 20})
	settings[0].SetReferenceExecutionTimes([]float64{20, 20})

	rows := StatisticsRows(settings)
	assert.Equal(t, "0", rows[0].ExecutionTime)
	assert.Equal(t, Unknown, rows[0].Throughput)
	assert.Equal(t, StatusUnknown, rows[0].Status)
	assert.Equal(t, Unknown, rows[0].Speedup)
	assert.Equal(t, StatusNotChanged, rows[1].Status)
}

func TestStatisticsRows(t *testing.T) {
	settings := testScenarios(t)
	settings[0].SetExecutionTimes([]float64{10, 20})
	settings[0].SetReferenceExecutionTimes([]float64{20, 20})
	settings[1].SetExecutionTimes([]float64{5})

	rows := StatisticsRows(settings)
	require.Len(t, rows, 5)

	assert.Equal(t, Row{
		QueryIndex:       0,
		TableLength:      10,
		ExecutionTime:    "10",
		Throughput:       "6e+04",
		RefExecutionTime: "20",
		RefThroughput:    "3e+04",
		Status:           StatusImproved,
		Speedup:          "2.00x",
	}, rows[0])
	assert.Equal(t, StatusNotChanged, rows[1].Status)
	assert.True(t, rows[2].Separator)

	// current timing without reference
	assert.Equal(t, "5", rows[3].ExecutionTime)
	assert.Equal(t, Unknown, rows[3].RefExecutionTime)
	assert.Equal(t, StatusUnknown, rows[3].Status)
	assert.Equal(t, Unknown, rows[3].Speedup)

	// no timing at all
	assert.Equal(t, Unknown, rows[4].ExecutionTime)
	assert.Equal(t, Unknown, rows[4].Throughput)

	counts := StatusCounts(rows)
	assert.Equal(t, map[Status]int{StatusImproved: 1, StatusNotChanged: 1, StatusUnknown: 2}, counts)
}

func TestStatisticsRows_ReferenceIgnoredWithoutCurrent(t *testing.T) {
	settings := testScenarios(t)[:1]
	settings[0].SetReferenceExecutionTimes([]float64{1, 2})

	rows := StatisticsRows(settings)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, Unknown, r.RefExecutionTime)
		assert.Equal(t, StatusUnknown, r.Status)
	}
}

func testReport(t *testing.T) *Report {
	settings := testScenarios(t)
	settings[0].SetExecutionTimes([]float64{10, 20})
	settings[0].SetReferenceExecutionTimes([]float64{40, 20})
	settings[0].Profile = &profile.Summary{Hottest: []profile.Function{{Name: "prove<&T>", Total: 99.5, Self: 60}}}

	return &Report{
		SessionID: "cq0abc",
		Generated: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Specs:     stats.HostSpecs{Architecture: "x86_64", Platform: "linux", CPUCores: 8, RAMGB: 16},
		Reference: &stats.Header{
			HostSpecs: stats.HostSpecs{Architecture: "aarch64", Platform: "linux", CPUCores: 4, RAMGB: 8},
			Timestamp: "01/01/2024 00:00:00",
		},
		Scenarios: settings,
		Configuration: []Setting{
			{Name: "Samples", Value: "5"},
		},
		StatisticsFile:    stats.FileName,
		RefStatisticsFile: "ref_" + stats.FileName,
		CombinedPlotFile:  CombinedPlotFileName,
		ArchiveFile:       ArchiveFileName,
	}
}

func TestHTML(t *testing.T) {
	page, err := testReport(t).HTML()
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, "<title>Proofs Benchmarks</title>")
	assert.Contains(t, html, "Proofs Benchmarks (03/01/2024 12:30:00)")
	assert.Contains(t, html, "select A from T where B = 2")
	assert.Contains(t, html, `href="query_1/plot_benchmark.svg"`)
	assert.Contains(t, html, `href="query_0/ref_callgrind.svg"`)
	assert.Contains(t, html, `href="ref_statistics_benchmark_data.yaml"`)
	assert.Contains(t, html, "prove&lt;&amp;T&gt; (99.50%)")
	assert.Contains(t, html, "<td>improved</td>")
	assert.Contains(t, html, "<td>4.00x</td>")
	assert.Contains(t, html, "<td>16GB</td>")
	assert.Contains(t, html, "<td>aarch64</td>")
	assert.Equal(t, 1, strings.Count(html, "<tr><td>-</td>"))
}

func TestHTML_WithoutReference(t *testing.T) {
	r := testReport(t)
	r.RefStatisticsFile = ""
	page, err := r.HTML()
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, `href="statistics_benchmark_data.yaml"`)
	assert.NotContains(t, html, "reference benchmark data")
	assert.NotContains(t, html, `href=""`)
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), HTMLFileName)
	require.NoError(t, testReport(t).WriteHTML(path))
	assert.FileExists(t, path)
}

func TestMarkdown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "query_0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, stats.FileName), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unknown.bin"), nil, 0644))

	r := testReport(t)
	path, err := r.WriteMarkdown(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MarkdownFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Proofs Benchmarks")
	assert.Contains(t, md, "**Session ID:** `cq0abc`")
	assert.Contains(t, md, "| Samples | `5` |")
	assert.Contains(t, md, "| improved | 1 |")
	assert.Contains(t, md, "| ? | 2 |")
	assert.Contains(t, md, "| 0 | `select A from T where B = 2` | 10 | 10 | 6e+04 | improved | 4.00x |")
	assert.Contains(t, md, "| 0 | `prove<&T>` | 99.50% | 60.00% |")
	assert.Contains(t, md, "| `query_0/` | Parameters, timings, plot and call graph of query 0 |")
	assert.Contains(t, md, "| `statistics_benchmark_data.yaml` | Statistics of this run |")
	assert.Contains(t, md, "| `unknown.bin` |  |")
}

func TestPrintSummary(t *testing.T) {
	r := testReport(t)
	var buf bytes.Buffer
	require.NoError(t, r.PrintSummary(&buf, r.Markdown(""), 100))
	assert.Contains(t, buf.String(), "Results by Query")
}

func TestGradient(t *testing.T) {
	colors := Gradient(3)
	require.Len(t, colors, 3)
	assert.Equal(t, "#00ced1", colors[0].Hex())
	assert.Equal(t, "#9b30ff", colors[2].Hex())
	assert.Len(t, Gradient(1), 1)
}

func TestOpenCommand(t *testing.T) {
	name, args := OpenCommand("linux", "/tmp/index.html")
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"/tmp/index.html"}, args)

	name, _ = OpenCommand("darwin", "/tmp/index.html")
	assert.Equal(t, "open", name)

	name, args = OpenCommand("windows", `C:\index.html`)
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, []string{"url.dll,FileProtocolHandler", `C:\index.html`}, args)
}
