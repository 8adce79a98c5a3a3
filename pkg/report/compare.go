// Package report turns a finished run into the HTML report, the markdown
// summary and the terminal rendering of that summary.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/justjake/querybench/pkg/scenario"
)

// Unknown is rendered in place of any value that could not be computed.
const Unknown = "?"

// Status compares a current timing with its reference.
type Status string

const (
	StatusUnknown      Status = Unknown
	StatusNotChanged   Status = "not changed"
	StatusDeteriorated Status = "deteriorated"
	StatusImproved     Status = "improved"
)

// speedupTolerance is the relative difference below which timings are equal.
const speedupTolerance = 1e-3

// Throughput converts a timing in milliseconds over rows into rows per minute.
func Throughput(rows int, ms float64) float64 {
	return float64(rows) / ms * 1e3 * 60
}

// Comparison is the outcome of comparing one timing with its reference.
type Comparison struct {
	Speedup float64
	Status  Status
}

// Compare computes the speedup ref/cur and classifies it. Timings that
// are not positive cannot be compared and yield StatusUnknown.
func Compare(ref, cur float64) Comparison {
	if !measurable(ref) || !measurable(cur) {
		return Comparison{Speedup: math.NaN(), Status: StatusUnknown}
	}
	speedup := ref / cur
	switch {
	case math.Abs(1-speedup) < speedupTolerance:
		return Comparison{Speedup: speedup, Status: StatusNotChanged}
	case ref < cur:
		return Comparison{Speedup: speedup, Status: StatusDeteriorated}
	default:
		return Comparison{Speedup: speedup, Status: StatusImproved}
	}
}

// Row is one line of the statistics table. Separator rows sit between
// scenarios and carry no values.
type Row struct {
	Separator bool

	QueryIndex       int
	TableLength      int
	ExecutionTime    string
	Throughput       string
	RefExecutionTime string
	RefThroughput    string
	Status           Status
	Speedup          string
}

// StatisticsRows builds the statistics table: one row per scenario and
// table length, with a separator row between consecutive scenarios.
// A reference value is only shown when the current value is known.
func StatisticsRows(settings []*scenario.Setting) []Row {
	var rows []Row
	for i, s := range settings {
		for j, length := range s.TableLengths {
			row := Row{
				QueryIndex:       s.Index,
				TableLength:      length,
				ExecutionTime:    Unknown,
				Throughput:       Unknown,
				RefExecutionTime: Unknown,
				RefThroughput:    Unknown,
				Status:           StatusUnknown,
				Speedup:          Unknown,
			}

			if j < len(s.ExecutionTimes) {
				cur := s.ExecutionTimes[j]
				row.ExecutionTime = formatTime(cur)
				row.Throughput = FormatThroughput(length, cur)

				if j < len(s.ReferenceExecutionTimes) {
					ref := s.ReferenceExecutionTimes[j]
					cmp := Compare(ref, cur)
					row.RefExecutionTime = formatTime(ref)
					row.RefThroughput = FormatThroughput(length, ref)
					row.Status = cmp.Status
					if cmp.Status != StatusUnknown {
						row.Speedup = FormatSpeedup(cmp.Speedup)
					}
				}
			}
			rows = append(rows, row)
		}

		if i+1 < len(settings) {
			rows = append(rows, Row{Separator: true})
		}
	}
	return rows
}

// StatusCounts tallies the comparison status of every non-separator row.
func StatusCounts(rows []Row) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range rows {
		if !r.Separator {
			counts[r.Status]++
		}
	}
	return counts
}

// FormatSpeedup renders a speedup such as "1.25x".
func FormatSpeedup(v float64) string {
	return fmt.Sprintf("%.2fx", v)
}

// FormatThroughput renders the rows per minute of a timing, or Unknown
// when the timing is not positive.
func FormatThroughput(rows int, ms float64) string {
	if !measurable(ms) {
		return Unknown
	}
	return fmt.Sprintf("%.2g", Throughput(rows, ms))
}

func measurable(ms float64) bool {
	return ms > 0 && !math.IsInf(ms, 1)
}

func formatTime(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}
