package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		TableLengths:         []int{10, 100, 1000},
		CallgrindTableLength: 500,
		PlotSamples:          5,
		MinValue:             -5,
		MaxValue:             5,
		TableColumns:         5,
		ResultColumns:        2,
	}
}

func TestEnumerate_TwelveScenarios(t *testing.T) {
	settings, err := Enumerate(testParams())
	require.NoError(t, err)
	require.Len(t, settings, 12)
	assert.Equal(t, Count(), len(settings))

	for i, s := range settings {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, 5, s.TableColumns)
		assert.Equal(t, CallgrindSamples, s.CallgrindSamples)
		assert.Equal(t, []int{10, 100, 1000}, s.TableLengths)
	}

	fifth := settings[4]
	assert.Equal(t, "(A = 2) and (B = 3)", fifth.WhereExpr)
	assert.Equal(t, 2, fifth.ResultColumns)
}

func TestEnumerate_FixedResultColumns(t *testing.T) {
	p := testParams()
	p.ResultColumns = 3

	settings, err := Enumerate(p)
	require.NoError(t, err)

	expected := []int{1, 2, 1, 2, 3, 3, 3, 3, 3, 3, 3, 3}
	for i, s := range settings {
		assert.Equal(t, expected[i], s.ResultColumns, "scenario %d", i)
	}
}

func TestEnumerate_Rejects(t *testing.T) {
	tests := []struct {
		name          string
		tableColumns  int
		resultColumns int
		expected      error
	}{
		{"three table columns", 3, 1, ErrTooFewTableColumns},
		{"zero result columns", 4, 0, ErrTooFewResultColumns},
		{"both invalid", 2, 0, ErrTooFewTableColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.TableColumns = tt.tableColumns
			p.ResultColumns = tt.resultColumns

			settings, err := Enumerate(p)
			require.ErrorIs(t, err, tt.expected)
			assert.Nil(t, settings)
		})
	}
}

func TestEnumerate_CopiesTableLengths(t *testing.T) {
	p := testParams()
	settings, err := Enumerate(p)
	require.NoError(t, err)

	p.TableLengths[0] = 999
	assert.Equal(t, 10, settings[0].TableLengths[0])
}

func TestSetting_SelectStatement(t *testing.T) {
	settings, err := Enumerate(testParams())
	require.NoError(t, err)

	assert.Equal(t, "select A from T where B = 2", settings[0].SelectStatement())
	assert.Equal(t, "select A,B from T where not (B = 1)", settings[3].SelectStatement())
}

func TestSetting_Paths(t *testing.T) {
	s := &Setting{Index: 7}

	assert.Equal(t, "query_7", s.BaseDir())
	assert.Equal(t, "query_7/plot_benchmark_params.txt", s.PlotParamsFile())
	assert.Equal(t, "query_7/plot_execution_times.txt", s.ExecutionTimesFile())
	assert.Equal(t, "query_7/plot_benchmark.svg", s.PlotSVGFile())
	assert.Equal(t, "query_7/callgrind_params.txt", s.CallgrindParamsFile())
	assert.Equal(t, "query_7/callgrind.svg", s.CallgrindSVGFile())
	assert.Equal(t, "query_7/callgrind.out", s.CallgrindOutFile())
	assert.Equal(t, "query_7/callgrind.dot", s.CallgrindDotFile())
	assert.Equal(t, "query_7/ref_callgrind.svg", s.RefCallgrindSVGFile())
	assert.Equal(t, "query_7/valgrind.log", s.ValgrindLogFile())
}

func TestSetting_CommandLines(t *testing.T) {
	settings, err := Enumerate(testParams())
	require.NoError(t, err)
	s := settings[4]

	assert.Equal(t,
		"--min-value -5 --max-value 5 --num-columns 5 --result-columns 'A,B' --where-expr '(A = 2) and (B = 3)' --num-samples 5 --table-length 100",
		s.PlotParams(100))
	assert.Equal(t,
		"--min-value -5 --max-value 5 --num-columns 5 --result-columns 'A,B' --where-expr '(A = 2) and (B = 3)' --num-samples 1 --table-length 500",
		s.CallgrindParams())
}

func TestSetting_FractionalBounds(t *testing.T) {
	s := &Setting{MinValue: -0.5, MaxValue: 2.25, TableColumns: 4, ResultColumns: 1, WhereExpr: "B = 2", PlotSamples: 3}
	assert.Equal(t,
		"--min-value -0.5 --max-value 2.25 --num-columns 4 --result-columns 'A' --where-expr 'B = 2' --num-samples 3 --table-length 1",
		s.PlotParams(1))
}

func TestSetting_TimingsAreCopied(t *testing.T) {
	s := &Setting{TableLengths: []int{1, 2}}
	times := []float64{1.5, 2.5}

	s.SetExecutionTimes(times)
	s.SetReferenceExecutionTimes(times)
	times[0] = 100

	assert.Equal(t, []float64{1.5, 2.5}, s.ExecutionTimes)
	assert.Equal(t, []float64{1.5, 2.5}, s.ReferenceExecutionTimes)
	assert.True(t, s.HasCompleteTimings())

	s.SetExecutionTimes(nil)
	assert.False(t, s.HasCompleteTimings())
}

func TestParamLines(t *testing.T) {
	lines, err := ParamLines("--min-value -5 --max-value 5 --result-columns 'A,B' --where-expr '(A = 2) and (B = 3)' --table-length 10")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"--min-value -5",
		"--max-value 5",
		"--result-columns 'A,B'",
		"--where-expr '(A = 2) and (B = 3)'",
		"--table-length 10",
	}, lines)
}

func TestParamLines_UnterminatedQuote(t *testing.T) {
	_, err := ParamLines("--where-expr 'B = 2")
	require.Error(t, err)
}

func TestFormatParamsFile(t *testing.T) {
	out, err := FormatParamsFile("--num-samples 1 --table-length 5")
	require.NoError(t, err)
	assert.Equal(t, "--num-samples 1\n--table-length 5\n", out)
}
