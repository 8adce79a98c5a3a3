package stats

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// legacyRecordLines is the number of labeled lines per query in the text format.
const legacyRecordLines = 12

// DecodeLegacy parses the labeled-text statistics format: five header lines
// followed by blank-line separated blocks of twelve "label: value" lines.
func DecodeLegacy(data []byte) (*Document, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 5 {
		return nil, fmt.Errorf("truncated header: %d lines", len(lines))
	}

	doc := &Document{}
	if err := decodeLegacyHeader(lines[:5], &doc.Header); err != nil {
		return nil, err
	}

	rest := lines[5:]
	for len(rest) > 0 {
		if strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
			continue
		}
		if len(rest) < legacyRecordLines {
			return nil, fmt.Errorf("query %d: truncated record", len(doc.Queries))
		}
		r, err := decodeLegacyRecord(rest[:legacyRecordLines])
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", len(doc.Queries), err)
		}
		doc.Queries = append(doc.Queries, r)
		rest = rest[legacyRecordLines:]
	}
	return doc, nil
}

func decodeLegacyHeader(lines []string, h *Header) error {
	// The first two header lines have no space after the colon.
	h.Architecture = strings.TrimSpace(strings.TrimPrefix(lines[0], "architecture:"))
	h.Platform = strings.TrimSpace(strings.TrimPrefix(lines[1], "platform:"))

	var err error
	if h.CPUCores, err = strconv.Atoi(value(lines[2])); err != nil {
		return fmt.Errorf("cpu cores: %w", err)
	}
	if h.RAMGB, err = strconv.Atoi(value(lines[3])); err != nil {
		return fmt.Errorf("ram: %w", err)
	}
	h.Timestamp = value(lines[4])
	return nil
}

func decodeLegacyRecord(lines []string) (Record, error) {
	var (
		r    Record
		errs = &firstError{}
	)

	r.QueryIndex = errs.atoi("query index", value(lines[0]))
	r.QueryString = value(lines[1])
	r.MinValue = errs.float("min value", value(lines[2]))
	r.MaxValue = errs.float("max value", value(lines[3]))
	r.TableColumns = errs.atoi("table columns", value(lines[4]))
	r.ResultColumns = errs.atoi("result columns", value(lines[5]))
	r.CallgrindFile = value(lines[6])
	r.CallgrindTableLength = errs.atoi("callgrind table length", value(lines[7]))
	r.CallgrindSamples = errs.atoi("callgrind samples", value(lines[8]))
	r.PlotSamples = errs.atoi("plot samples", value(lines[9]))

	for _, f := range strings.Fields(value(lines[10])) {
		r.TableLengths = append(r.TableLengths, errs.atoi("table lengths", f))
	}
	for _, f := range strings.Fields(value(lines[11])) {
		r.ExecutionTimesMS = append(r.ExecutionTimesMS, errs.float("execution times", f))
	}
	return r, errs.err
}

// value returns what follows the first ": " of a labeled line.
func value(line string) string {
	_, v, _ := strings.Cut(line, ": ")
	return strings.TrimSpace(v)
}

type firstError struct{ err error }

func (f *firstError) atoi(field, s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}

func (f *firstError) float(field, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}
