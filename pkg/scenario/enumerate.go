package scenario

import (
	"errors"
	"slices"
)

var (
	ErrTooFewTableColumns  = errors.New("number of table columns must be at least 4")
	ErrTooFewResultColumns = errors.New("number of result columns must be at least 1")
)

// Params holds the run-wide knobs every scenario shares.
type Params struct {
	TableLengths         []int
	CallgrindTableLength int
	PlotSamples          int
	MinValue             float64
	MaxValue             float64
	TableColumns         int
	ResultColumns        int
}

// clause is one row of the scenario matrix. resultColumns == 0 means the
// configured result column count.
type clause struct {
	resultColumns int
	whereExpr     string
}

var clauses = []clause{
	{1, "B = 2"},
	{2, "B = 2"},
	{1, "not (B = 1)"},
	{2, "not (B = 1)"},
	{0, "(A = 2) and (B = 3)"},
	{0, "(A = 2) or (B = 3)"},
	{0, "not ((A = 2) or (B = 3))"},
	{0, "not ((A = 2) and (B = 3))"},
	{0, "((C = 0) or (B = 1)) and (not (A = -1))"},
	{0, "((C = 0) and (B = 1)) and (not (A = -1))"},
	{0, "((C = 0) and (B = 1)) or (not (A = -1))"},
	{0, "((C = 0) or (B = 1)) or (not (A = -1))"},
}

// Count is the number of scenarios Enumerate produces.
func Count() int {
	return len(clauses)
}

// Enumerate builds every scenario for p. Every where expression touches the
// columns A, B and C, so at least one more table column is required.
func Enumerate(p Params) ([]*Setting, error) {
	if p.TableColumns < 4 {
		return nil, ErrTooFewTableColumns
	}
	if p.ResultColumns < 1 {
		return nil, ErrTooFewResultColumns
	}

	settings := make([]*Setting, 0, len(clauses))
	for idx, c := range clauses {
		resultColumns := c.resultColumns
		if resultColumns == 0 {
			resultColumns = p.ResultColumns
		}

		settings = append(settings, &Setting{
			Index:                idx,
			WhereExpr:            c.whereExpr,
			ResultColumns:        resultColumns,
			TableColumns:         p.TableColumns,
			MinValue:             p.MinValue,
			MaxValue:             p.MaxValue,
			TableLengths:         slices.Clone(p.TableLengths),
			PlotSamples:          p.PlotSamples,
			CallgrindSamples:     CallgrindSamples,
			CallgrindTableLength: p.CallgrindTableLength,
		})
	}
	return settings, nil
}
