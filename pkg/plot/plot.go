// Package plot renders execution time charts for benchmark scenarios.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"slices"

	gonum "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/justjake/querybench/pkg/report"
	"github.com/justjake/querybench/pkg/scenario"
)

// Panel dimensions of a single chart.
const (
	panelWidth  = 8 * vg.Inch
	panelHeight = 5 * vg.Inch
	gridColumns = 2
)

// Title is the chart title of a scenario.
func Title(s *scenario.Setting) string {
	return fmt.Sprintf("Query %d: %s", s.Index, s.SelectStatement())
}

// newChart builds the chart of s. It reports false, leaving an empty
// titled chart, when s has no timing for some table length.
func newChart(s *scenario.Setting, c color.Color) (*gonum.Plot, bool, error) {
	p := gonum.New()
	p.Title.Text = Title(s)
	p.X.Label.Text = "number of table rows"
	p.Y.Label.Text = "execution time (ms)"

	if len(s.TableLengths) == 0 || !s.HasCompleteTimings() {
		return p, false, nil
	}

	pts := make(plotter.XYs, len(s.TableLengths))
	labels := make([]string, len(s.TableLengths))
	for i, length := range s.TableLengths {
		pts[i].X = float64(length)
		pts[i].Y = s.ExecutionTimes[i]
		labels[i] = report.FormatThroughput(length, s.ExecutionTimes[i])
	}

	if logScalable(s.TableLengths) {
		p.X.Scale = gonum.LogScale{}
		p.X.Tick.Marker = gonum.LogTicks{Prec: -1}
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, false, fmt.Errorf("query %d: %w", s.Index, err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	points.Color = c
	points.Shape = draw.CircleGlyph{}

	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return nil, false, fmt.Errorf("query %d: %w", s.Index, err)
	}
	annotations.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(4)}

	p.Add(plotter.NewGrid(), line, points, annotations)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Add("throughput (rows/min)", points)
	return p, true, nil
}

// logScalable reports whether lengths can be drawn on a log axis: every
// value positive and not all equal.
func logScalable(lengths []int) bool {
	if len(lengths) < 2 || slices.Min(lengths) <= 0 {
		return false
	}
	return slices.Min(lengths) != slices.Max(lengths)
}

// WriteScenario saves the chart of s under outputDir. It returns false
// without writing anything when the timings do not cover every table length.
func WriteScenario(outputDir string, s *scenario.Setting, c color.Color) (bool, error) {
	p, ok, err := newChart(s, c)
	if err != nil || !ok {
		return false, err
	}

	path := filepath.Join(outputDir, s.PlotSVGFile())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := p.Save(panelWidth, panelHeight, path); err != nil {
		return false, fmt.Errorf("save %s: %w", path, err)
	}
	return true, nil
}

// WriteCombined saves every scenario chart in a two column grid at path.
// Scenarios without complete timings get an empty titled panel.
func WriteCombined(path string, settings []*scenario.Setting) error {
	if len(settings) == 0 {
		return errors.New("no scenarios to plot")
	}

	colors := report.Gradient(len(settings))
	rows := (len(settings) + gridColumns - 1) / gridColumns
	grid := make([][]*gonum.Plot, rows)
	for i := range grid {
		grid[i] = make([]*gonum.Plot, gridColumns)
	}

	for i, s := range settings {
		p, _, err := newChart(s, colors[i])
		if err != nil {
			return err
		}
		grid[i/gridColumns][i%gridColumns] = p
	}
	for _, row := range grid {
		for j := range row {
			if row[j] == nil {
				row[j] = gonum.New()
			}
		}
	}

	img := vgsvg.New(gridColumns*panelWidth, vg.Length(rows)*panelHeight)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      gridColumns,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := gonum.Align(grid, tiles, draw.New(img))
	for i, row := range grid {
		for j, p := range row {
			p.Draw(canvases[i][j])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := img.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
