// Package config holds the benchmark run configuration assembled from
// flags, QUERYBENCH_* environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justjake/querybench/pkg/scenario"
)

// RunConfig configures one benchmark run. Keys match the CLI flag names.
type RunConfig struct {
	ForceBuild   bool   `mapstructure:"force-build"`
	BinaryPath   string `mapstructure:"binary-path"`
	BuildCommand string `mapstructure:"build-command"`

	// LibraryPath is exported as LD_LIBRARY_PATH to benchmark runs.
	LibraryPath string `mapstructure:"library-path"`

	MinValue             float64 `mapstructure:"min-value"`
	MaxValue             float64 `mapstructure:"max-value"`
	NumTableColumns      int     `mapstructure:"num-table-columns"`
	NumResultColumns     int     `mapstructure:"num-result-columns"`
	NumSamples           int     `mapstructure:"num-samples"`
	PlotTableLengths     []int   `mapstructure:"plot-table-lengths"`
	CallgrindTableLength int     `mapstructure:"callgrind-table-length"`

	GeneratePlots     bool `mapstructure:"generate-plots"`
	GenerateCallgrind bool `mapstructure:"generate-callgrind"`
	OpenHTML          bool `mapstructure:"open-html"`

	OutputDir        string `mapstructure:"output-dir"`
	RefStatisticsDir string `mapstructure:"ref-statistics-dir"`

	// ResultsDB is a Postgres connection string. Empty disables history.
	ResultsDB         string    `mapstructure:"results-db"`
	ResultsDBPassword SecretRef `mapstructure:"results-db-password"`

	OpenTelemetry OpenTelemetryConfig `mapstructure:",squash"`

	LogFormat string `mapstructure:"log-format"`
	LogLevel  string `mapstructure:"log-level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() RunConfig {
	return RunConfig{
		BinaryPath:           "target/release/provable_sql",
		BuildCommand:         "cargo build --release --bin provable_sql",
		MinValue:             -5,
		MaxValue:             5,
		NumTableColumns:      5,
		NumResultColumns:     2,
		NumSamples:           5,
		PlotTableLengths:     []int{1, 10, 100, 1000, 10000},
		CallgrindTableLength: 1000,
		GeneratePlots:        true,
		GenerateCallgrind:    true,
		OutputDir:            "bench/results",
		RefStatisticsDir:     "bench/reference",
		LogFormat:            "text",
		LogLevel:             "info",
	}
}

// ScenarioParams returns the knobs shared by every scenario.
func (c *RunConfig) ScenarioParams() scenario.Params {
	return scenario.Params{
		TableLengths:         c.PlotTableLengths,
		CallgrindTableLength: c.CallgrindTableLength,
		PlotSamples:          c.NumSamples,
		MinValue:             c.MinValue,
		MaxValue:             c.MaxValue,
		TableColumns:         c.NumTableColumns,
		ResultColumns:        c.NumResultColumns,
	}
}

// BenchmarkEnv is the extra environment of benchmark binary runs.
func (c *RunConfig) BenchmarkEnv() []string {
	if c.LibraryPath == "" {
		return nil
	}
	return []string{"LD_LIBRARY_PATH=" + c.LibraryPath}
}

// SlogLevel parses LogLevel.
func (c *RunConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log-level: %w", err)
	}
	return level, nil
}

// Validate verifies the configuration. It does not stop at the first
// error; all errors are accumulated and returned together.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.NumTableColumns < 4 {
		errs = append(errs, fmt.Errorf("num-table-columns %d: %w", c.NumTableColumns, scenario.ErrTooFewTableColumns))
	}
	if c.NumResultColumns < 1 {
		errs = append(errs, fmt.Errorf("num-result-columns %d: %w", c.NumResultColumns, scenario.ErrTooFewResultColumns))
	}
	if c.NumSamples < 1 {
		errs = append(errs, fmt.Errorf("num-samples %d must be at least 1", c.NumSamples))
	}
	if c.MinValue > c.MaxValue {
		errs = append(errs, fmt.Errorf("min-value %g must not exceed max-value %g", c.MinValue, c.MaxValue))
	}
	if len(c.PlotTableLengths) == 0 {
		errs = append(errs, errors.New("plot-table-lengths must not be empty"))
	}
	for i, l := range c.PlotTableLengths {
		if l < 1 {
			errs = append(errs, fmt.Errorf("plot-table-lengths[%d] %d must be positive", i, l))
		}
	}
	if c.CallgrindTableLength < 1 {
		errs = append(errs, fmt.Errorf("callgrind-table-length %d must be positive", c.CallgrindTableLength))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output-dir must be set"))
	}
	if c.BinaryPath == "" {
		errs = append(errs, errors.New("binary-path must be set"))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log-format %q must be text or json", c.LogFormat))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if !c.ResultsDBPassword.IsZero() {
		if c.ResultsDB == "" {
			errs = append(errs, errors.New("results-db-password requires results-db"))
		}
		if err := c.ResultsDBPassword.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("results-db-password: %w", err))
		}
	}
	if err := c.OpenTelemetry.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
