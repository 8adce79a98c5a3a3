package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justjake/querybench/pkg/bench"
	"github.com/justjake/querybench/pkg/config"
	"github.com/justjake/querybench/pkg/observability"
	"github.com/justjake/querybench/pkg/reportserver"
	"github.com/justjake/querybench/pkg/resultsdb"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "querybench",
		Short: "Benchmark the provable SQL query scenarios against a reference run",
		Long: "querybench builds the benchmark binary, times and profiles every query scenario,\n" +
			"compares the results with a reference run and writes plots and an HTML report.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cmd.Flags(), configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if isTerminal(cmd.OutOrStdout()) {
				printBanner(cmd.OutOrStdout())
			}
			return runBenchmark(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	config.RegisterCommonFlags(cmd.PersistentFlags(), config.Default())
	config.RegisterRunFlags(cmd.Flags(), config.Default())

	cmd.AddCommand(newServeCmd(v, &configPath))
	cmd.AddCommand(newDocsCmd())
	return cmd
}

func newServeCmd(v *viper.Viper, configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an output directory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cmd.Flags(), *configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			srv := reportserver.New(cfg.OutputDir, logger)
			if cfg.ResultsDB != "" {
				store, err := openResultsDB(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer store.Close(context.Background())
				srv.Runs = store
			}
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "address to listen on")
	return cmd
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Show the full documentation",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printFullDocs(cmd.OutOrStdout())
		},
	}
}

func runBenchmark(ctx context.Context, cfg *config.RunConfig, logger *slog.Logger, out io.Writer) error {
	tp, err := observability.NewTracerProvider(ctx, &cfg.OpenTelemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	session := bench.NewSession(cfg, logger)
	session.Tracer = tp.Tracer("querybench")
	session.SummaryWriter = out

	if cfg.ResultsDB != "" {
		store, err := openResultsDB(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		session.Recorder = store
	}

	result, err := session.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("report written",
		"html", result.HTMLFile,
		"markdown", result.MarkdownFile,
		"metrics", result.MetricsFile)
	return nil
}

func openResultsDB(ctx context.Context, cfg *config.RunConfig, logger *slog.Logger) (*resultsdb.Store, error) {
	password, err := config.ResolvePassword(ctx, cfg.ResultsDBPassword, nil)
	if err != nil {
		return nil, fmt.Errorf("results-db-password %s: %w", cfg.ResultsDBPassword, err)
	}
	return resultsdb.Open(ctx, cfg.ResultsDB, password, logger)
}
