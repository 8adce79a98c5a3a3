package stats

import (
	"fmt"
	"math"
	"slices"

	"github.com/justjake/querybench/pkg/scenario"
)

// boundTolerance is how far a recorded table bound may drift.
const boundTolerance = 1e-3

// MismatchError reports a statistics record whose configuration does not
// match the live scenario it is compared against.
type MismatchError struct {
	Index     int
	Field     string
	Reference any
	Current   any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("query %d: reference %s %v differs from %v", e.Index, e.Field, e.Reference, e.Current)
}

// Validate checks every record against the setting at the same position and
// returns the recorded timing sweeps in setting order. Records beyond the
// last setting are ignored.
func (d *Document) Validate(settings []*scenario.Setting) ([][]float64, error) {
	if len(d.Queries) < len(settings) {
		return nil, &MismatchError{Index: len(d.Queries), Field: "records", Reference: len(d.Queries), Current: len(settings)}
	}

	times := make([][]float64, 0, len(settings))
	for i, s := range settings {
		if err := compare(i, &d.Queries[i], s); err != nil {
			return nil, err
		}
		times = append(times, slices.Clone(d.Queries[i].ExecutionTimesMS))
	}
	return times, nil
}

func compare(i int, r *Record, s *scenario.Setting) error {
	mismatch := func(field string, ref, cur any) error {
		return &MismatchError{Index: i, Field: field, Reference: ref, Current: cur}
	}

	switch {
	case r.QueryIndex != i:
		return mismatch("query index", r.QueryIndex, i)
	case r.QueryString != s.SelectStatement():
		return mismatch("query string", r.QueryString, s.SelectStatement())
	case math.Abs(r.MinValue-s.MinValue) > boundTolerance:
		return mismatch("min value", r.MinValue, s.MinValue)
	case math.Abs(r.MaxValue-s.MaxValue) > boundTolerance:
		return mismatch("max value", r.MaxValue, s.MaxValue)
	case r.TableColumns != s.TableColumns:
		return mismatch("table columns", r.TableColumns, s.TableColumns)
	case r.ResultColumns != s.ResultColumns:
		return mismatch("result columns", r.ResultColumns, s.ResultColumns)
	case r.CallgrindTableLength != s.CallgrindTableLength:
		return mismatch("callgrind table length", r.CallgrindTableLength, s.CallgrindTableLength)
	case r.CallgrindSamples != s.CallgrindSamples:
		return mismatch("callgrind samples", r.CallgrindSamples, s.CallgrindSamples)
	case r.PlotSamples != s.PlotSamples:
		return mismatch("plot samples", r.PlotSamples, s.PlotSamples)
	case !slices.Equal(r.TableLengths, s.TableLengths):
		return mismatch("table lengths", r.TableLengths, s.TableLengths)
	case len(r.ExecutionTimesMS) != len(s.TableLengths):
		return mismatch("execution time count", len(r.ExecutionTimesMS), len(s.TableLengths))
	}
	return nil
}
