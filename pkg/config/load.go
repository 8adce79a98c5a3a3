package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variable of every key.
const EnvPrefix = "QUERYBENCH"

// passwordFlags maps secret flags to their nested configuration keys.
var passwordFlags = map[string]string{
	"results-db-password-env":     "results-db-password.env-var",
	"results-db-password-aws-arn": "results-db-password.aws-secret-arn",
	"results-db-password-aws-key": "results-db-password.aws-secret-key",
	"results-db-password":         "results-db-password.insecure-value",
}

// FlagKey returns the configuration key a flag is bound to.
func FlagKey(name string) string {
	if nested, ok := passwordFlags[name]; ok {
		return nested
	}
	return name
}

// RegisterFlags defines every flag on fs with defaults from d.
func RegisterFlags(fs *pflag.FlagSet, d RunConfig) {
	RegisterCommonFlags(fs, d)
	RegisterRunFlags(fs, d)
}

// RegisterRunFlags defines the flags that shape a benchmark run.
func RegisterRunFlags(fs *pflag.FlagSet, d RunConfig) {
	IntBoolVar(fs, "force-build", d.ForceBuild, "rebuild the benchmark binary even if it exists")
	fs.String("binary-path", d.BinaryPath, "path of the compiled benchmark binary")
	fs.String("build-command", d.BuildCommand, "command that builds the benchmark binary")
	fs.String("library-path", d.LibraryPath, "LD_LIBRARY_PATH for benchmark runs")

	fs.Float64("min-value", d.MinValue, "minimum cell value of the generated table")
	fs.Float64("max-value", d.MaxValue, "maximum cell value of the generated table")
	fs.Int("num-table-columns", d.NumTableColumns, "number of table columns (at least 4)")
	fs.Int("num-result-columns", d.NumResultColumns, "number of result columns for configurable queries")
	fs.Int("num-samples", d.NumSamples, "samples per timing run")
	fs.IntSlice("plot-table-lengths", d.PlotTableLengths, "table lengths of the timing sweep")
	fs.Int("callgrind-table-length", d.CallgrindTableLength, "table length of the profiling run")

	IntBoolVar(fs, "generate-plots", d.GeneratePlots, "run the timing sweep")
	IntBoolVar(fs, "generate-callgrind", d.GenerateCallgrind, "run the callgrind profiling pipeline")
	IntBoolVar(fs, "open-html", d.OpenHTML, "open the report in a browser when done")

	fs.String("ref-statistics-dir", d.RefStatisticsDir, "directory holding the reference run")

	fs.String("otlp-endpoint", d.OpenTelemetry.OTLPEndpoint, "OTLP collector endpoint for run traces")
	fs.String("otlp-protocol", d.OpenTelemetry.GetOTLPProtocol(), "OTLP protocol: grpc or http")
	IntBoolVar(fs, "otlp-insecure", d.OpenTelemetry.OTLPInsecure, "disable TLS towards the collector")
	fs.String("otlp-service-name", d.OpenTelemetry.GetServiceName(), "service name of run traces")
}

// RegisterCommonFlags defines the flags shared by every command.
func RegisterCommonFlags(fs *pflag.FlagSet, d RunConfig) {
	fs.String("output-dir", d.OutputDir, "directory receiving every artifact")

	fs.String("results-db", d.ResultsDB, "Postgres connection string for run history")
	fs.String("results-db-password-env", "", "environment variable holding the results-db password")
	fs.String("results-db-password-aws-arn", "", "AWS Secrets Manager ARN holding the results-db password")
	fs.String("results-db-password-aws-key", "", "JSON key of the password inside the AWS secret")
	fs.String("results-db-password", "", "results-db password in plain text (development only)")

	fs.String("log-format", d.LogFormat, "log format: text or json")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
}

// Load resolves the run configuration with precedence flags > environment
// > YAML file > defaults, then validates it. Keys without a flag in fs
// keep their Default value unless the file or environment sets them.
func Load(v *viper.Viper, fs *pflag.FlagSet, configPath string) (*RunConfig, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := FlagKey(f.Name)
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if configPath != "" {
		values, err := ReadYAMLFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	}

	// Slices decode element-wise over an existing value, so the default
	// lengths go through viper instead of the struct.
	cfg := Default()
	v.SetDefault("plot-table-lengths", cfg.PlotTableLengths)
	cfg.PlotTableLengths = nil
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadYAMLFile decodes a YAML configuration file into a key/value map.
func ReadYAMLFile(path string) (map[string]any, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer in.Close()

	values := map[string]any{}
	if err := yaml.NewDecoder(in).Decode(&values); err != nil {
		return nil, fmt.Errorf("decode yaml config file: %w", err)
	}
	return values, nil
}
