package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justjake/querybench/pkg/scenario"
)

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, Default())
	return fs
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.BenchmarkEnv())
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.NumTableColumns = 3
	cfg.NumResultColumns = 0
	cfg.MinValue = 10
	cfg.PlotTableLengths = []int{10, 0}
	cfg.LogFormat = "xml"
	cfg.OpenTelemetry.OTLPProtocol = "udp"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, scenario.ErrTooFewTableColumns))
	assert.True(t, errors.Is(err, scenario.ErrTooFewResultColumns))
	assert.Contains(t, err.Error(), "min-value 10 must not exceed max-value 5")
	assert.Contains(t, err.Error(), "plot-table-lengths[1] 0 must be positive")
	assert.Contains(t, err.Error(), `log-format "xml"`)
	assert.Contains(t, err.Error(), `otlp-protocol "udp"`)
}

func TestValidate_PasswordNeedsDatabase(t *testing.T) {
	cfg := Default()
	cfg.ResultsDBPassword = SecretRef{EnvVar: "PGPASSWORD"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results-db-password requires results-db")

	cfg.ResultsDB = "postgres://bench@localhost/bench"
	assert.NoError(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())

	cfg.LogLevel = "loud"
	_, err = cfg.SlogLevel()
	assert.Error(t, err)
}

func TestBenchmarkEnv(t *testing.T) {
	cfg := Default()
	cfg.LibraryPath = "/opt/lib"
	assert.Equal(t, []string{"LD_LIBRARY_PATH=/opt/lib"}, cfg.BenchmarkEnv())
}

func TestScenarioParams(t *testing.T) {
	cfg := Default()
	p := cfg.ScenarioParams()
	assert.Equal(t, cfg.PlotTableLengths, p.TableLengths)
	assert.Equal(t, cfg.NumSamples, p.PlotSamples)
	assert.Equal(t, cfg.NumTableColumns, p.TableColumns)

	settings, err := scenario.Enumerate(p)
	require.NoError(t, err)
	assert.Len(t, settings, scenario.Count())
}

func TestIntBool(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	IntBoolVar(fs, "a", false, "")
	IntBoolVar(fs, "b", true, "")
	IntBoolVar(fs, "c", false, "")

	require.NoError(t, fs.Parse([]string{"--a", "1", "--b", "0", "--c=true", "rest"}))
	assert.Equal(t, "1", fs.Lookup("a").Value.String())
	assert.Equal(t, "0", fs.Lookup("b").Value.String())
	assert.Equal(t, "1", fs.Lookup("c").Value.String())
	assert.Equal(t, []string{"rest"}, fs.Args())

	err := fs.Parse([]string{"--a=maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not 0, 1, true or false")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), newFlags(t), "")
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, want.PlotTableLengths, cfg.PlotTableLengths)
	assert.Equal(t, want.NumSamples, cfg.NumSamples)
	assert.True(t, cfg.GeneratePlots)
	assert.False(t, cfg.OpenHTML)
	assert.Equal(t, "grpc", cfg.OpenTelemetry.GetOTLPProtocol())
	assert.True(t, cfg.ResultsDBPassword.IsZero())
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querybench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
num-samples: 7
num-result-columns: 3
generate-callgrind: 0
plot-table-lengths: [2, 20]
output-dir: from-file
results-db: postgres://bench@localhost/bench
results-db-password:
  env-var: BENCH_PASSWORD
`), 0644))

	t.Setenv("QUERYBENCH_NUM_RESULT_COLUMNS", "4")
	t.Setenv("QUERYBENCH_OUTPUT_DIR", "from-env")

	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--output-dir", "from-flag", "--open-html", "1"}))

	cfg, err := Load(viper.New(), fs, path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.NumSamples)
	assert.Equal(t, 4, cfg.NumResultColumns)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.False(t, cfg.GenerateCallgrind)
	assert.True(t, cfg.OpenHTML)
	assert.Equal(t, []int{2, 20}, cfg.PlotTableLengths)
	assert.Equal(t, SecretRef{EnvVar: "BENCH_PASSWORD"}, cfg.ResultsDBPassword)
}

func TestLoad_PasswordFlags(t *testing.T) {
	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{
		"--results-db", "postgres://bench@localhost/bench",
		"--results-db-password-aws-arn", "arn:aws:secretsmanager:us-east-1:1:secret:bench",
		"--results-db-password-aws-key", "password",
	}))

	cfg, err := Load(viper.New(), fs, "")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:secretsmanager:us-east-1:1:secret:bench", cfg.ResultsDBPassword.AwsSecretArn)
	assert.Equal(t, "password", cfg.ResultsDBPassword.Key)
}

func TestLoad_InvalidValues(t *testing.T) {
	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--num-table-columns", "2"}))

	_, err := Load(viper.New(), fs, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scenario.ErrTooFewTableColumns))
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), newFlags(t), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenTelemetryConfig(t *testing.T) {
	var nilCfg *OpenTelemetryConfig
	assert.False(t, nilCfg.Enabled())

	cfg := OpenTelemetryConfig{}
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "grpc", cfg.GetOTLPProtocol())
	assert.Equal(t, "querybench", cfg.GetServiceName())
	assert.NoError(t, cfg.Validate())

	cfg = OpenTelemetryConfig{OTLPEndpoint: "localhost:4317", OTLPProtocol: "http", ServiceName: "bench"}
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "http", cfg.GetOTLPProtocol())
	assert.Equal(t, "bench", cfg.GetServiceName())
}

func TestLoad_CommonFlagsKeepRunDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterCommonFlags(fs, Default())
	require.NoError(t, fs.Parse([]string{"--output-dir", "results", "--log-format", "json"}))

	cfg, err := Load(viper.New(), fs, "")
	require.NoError(t, err)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, Default().NumTableColumns, cfg.NumTableColumns)
	assert.Equal(t, Default().PlotTableLengths, cfg.PlotTableLengths)
}

func TestLoad_PlotTableLengthsReplaceDefault(t *testing.T) {
	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--plot-table-lengths", "1,10"}))
	cfg, err := Load(viper.New(), fs, "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 10}, cfg.PlotTableLengths)

	t.Setenv("QUERYBENCH_PLOT_TABLE_LENGTHS", "3,30")
	cfg, err = Load(viper.New(), newFlags(t), "")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 30}, cfg.PlotTableLengths)
}

func TestLoad_IntBoolSeparateValue(t *testing.T) {
	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--generate-plots", "0", "--force-build", "1"}))
	assert.Empty(t, fs.Args())

	cfg, err := Load(viper.New(), fs, "")
	require.NoError(t, err)
	assert.False(t, cfg.GeneratePlots)
	assert.True(t, cfg.ForceBuild)
}
