// Package stats reads, writes and validates the statistics document that
// records a benchmark session, and compares it against the live scenarios.
package stats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/justjake/querybench/pkg/scenario"
)

const (
	// FileName is the statistics document written for every run.
	FileName = "statistics_benchmark_data.yaml"

	// LegacyFileName is the labeled-text statistics file of older runs.
	LegacyFileName = "statistics_benchmark_data.txt"

	// SchemaVersion is bumped whenever a field changes meaning.
	SchemaVersion = 1

	// TimestampLayout matches the timestamps of legacy files.
	TimestampLayout = "01/02/2006 15:04:05"
)

// Header is the session metadata at the top of a statistics document.
type Header struct {
	Schema    int    `yaml:"schema"`
	SessionID string `yaml:"session_id,omitempty"`
	HostSpecs `yaml:",inline"`
	Timestamp string `yaml:"timestamp"`
}

// Record is the statistics of one scenario.
type Record struct {
	QueryIndex           int       `yaml:"query_index"`
	QueryString          string    `yaml:"query_string"`
	MinValue             float64   `yaml:"min_value"`
	MaxValue             float64   `yaml:"max_value"`
	TableColumns         int       `yaml:"table_columns"`
	ResultColumns        int       `yaml:"result_columns"`
	CallgrindFile        string    `yaml:"callgrind_file"`
	CallgrindTableLength int       `yaml:"callgrind_table_length"`
	CallgrindSamples     int       `yaml:"callgrind_samples"`
	PlotSamples          int       `yaml:"plot_samples"`
	TableLengths         []int     `yaml:"table_lengths"`
	ExecutionTimesMS     []float64 `yaml:"execution_times_ms"`
}

// Document is a full statistics file.
type Document struct {
	Header  `yaml:",inline"`
	Queries []Record `yaml:"queries"`
}

// NewDocument captures settings as they are now.
func NewDocument(sessionID string, specs HostSpecs, now time.Time, settings []*scenario.Setting) *Document {
	doc := &Document{
		Header: Header{
			Schema:    SchemaVersion,
			SessionID: sessionID,
			HostSpecs: specs,
			Timestamp: now.Format(TimestampLayout),
		},
		Queries: make([]Record, 0, len(settings)),
	}

	for _, s := range settings {
		doc.Queries = append(doc.Queries, Record{
			QueryIndex:           s.Index,
			QueryString:          s.SelectStatement(),
			MinValue:             s.MinValue,
			MaxValue:             s.MaxValue,
			TableColumns:         s.TableColumns,
			ResultColumns:        s.ResultColumns,
			CallgrindFile:        s.CallgrindSVGFile(),
			CallgrindTableLength: s.CallgrindTableLength,
			CallgrindSamples:     s.CallgrindSamples,
			PlotSamples:          s.PlotSamples,
			TableLengths:         slices.Clone(s.TableLengths),
			ExecutionTimesMS:     slices.Clone(s.ExecutionTimes),
		})
	}
	return doc
}

// Write stores doc at path as YAML.
func Write(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write statistics: %w", err)
	}
	return nil
}

// Load reads a statistics document in either the YAML or the legacy text
// format. A missing file yields (nil, nil).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}

	if IsLegacy(data) {
		doc, err := DecodeLegacy(data)
		if err != nil {
			return nil, fmt.Errorf("decode legacy statistics %s: %w", path, err)
		}
		return doc, nil
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode statistics %s: %w", path, err)
	}
	return &doc, nil
}

// Read loads the statistics at path and validates it against settings,
// returning one timing sweep per setting. A missing file yields (nil, nil).
func Read(path string, settings []*scenario.Setting) ([][]float64, error) {
	doc, err := Load(path)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Validate(settings)
}

// IsLegacy reports whether data is in the labeled-text format.
func IsLegacy(data []byte) bool {
	return bytes.HasPrefix(data, []byte("architecture:"))
}

// FindStatistics returns the statistics file inside dir, preferring the YAML
// document over a legacy text file. It returns "" when neither exists.
func FindStatistics(dir string) string {
	for _, name := range []string{FileName, LegacyFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
