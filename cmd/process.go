package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/config"
	"github.com/sells-group/provider-cli/internal/ingest"
	"github.com/sells-group/provider-cli/internal/model"
	"github.com/sells-group/provider-cli/internal/pipeline"
	"github.com/sells-group/provider-cli/internal/report"
)

type processOptions struct {
	envOptions
	Input      string
	Sample     bool
	Limit      int
	Output     string
	Report     string
	NoProgress bool
}

var processOpts processOptions

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a batch of provider records through the pipeline",
	Long:  "Reads providers from a CSV, gzipped CSV, or XLSX file, validates, enriches, and scores each one, stores the final records, and prints a batch summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runProcess(ctx, processOpts, os.Stdout, os.Stderr)
	},
}

func runProcess(ctx context.Context, opts processOptions, out, progressOut io.Writer) error {
	providers, source, err := loadBatch(ctx, opts)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return eris.Wrapf(pipeline.ErrEmptyBatch, "no providers in %s", source)
	}

	env, err := initPipeline(ctx, config.ModeOnline, opts.envOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	batchOpts := []pipeline.BatchOption{pipeline.WithSource(source)}
	var bar *batchProgress
	if !opts.NoProgress {
		bar = newBatchProgress(progressOut, len(providers))
		batchOpts = append(batchOpts, pipeline.WithProgress(bar.Observe))
	}

	res, runErr := env.Pipeline.ProcessBatch(ctx, providers, batchOpts...)
	if bar != nil {
		bar.Wait()
	}
	if res == nil {
		return runErr
	}
	if runErr != nil {
		zap.L().Warn("batch stopped early", zap.Int("processed", len(res.Results)), zap.Error(runErr))
	}

	_, _ = fmt.Fprintln(out, renderSummary(res.RunID, res.Summary))

	if opts.Output != "" {
		if err := writeJSONFile(opts.Output, res); err != nil {
			return err
		}
		zap.L().Info("results written", zap.String("path", opts.Output))
	}
	if opts.Report != "" {
		if err := report.WriteFile(opts.Report, report.Rows(res.Results)); err != nil {
			return err
		}
		zap.L().Info("report written", zap.String("path", opts.Report))
	}

	return runErr
}

func loadBatch(ctx context.Context, opts processOptions) ([]model.Provider, string, error) {
	var (
		providers []model.Provider
		source    string
	)
	switch {
	case opts.Sample:
		providers, source = ingest.SampleProviders(), "sample"
	case opts.Input != "":
		p, err := ingest.ReadFile(ctx, opts.Input)
		if err != nil {
			return nil, "", err
		}
		providers, source = p, opts.Input
	default:
		return nil, "", eris.New("process: --input or --sample is required")
	}

	if opts.Limit > 0 && len(providers) > opts.Limit {
		providers = providers[:opts.Limit]
	}
	return providers, source, nil
}

func addEnvFlags(cmd *cobra.Command, opts *envOptions) {
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "use fixture registry data and canned text replies instead of live services")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "fixtures YAML for --offline")
}

func init() {
	processCmd.Flags().StringVar(&processOpts.Input, "input", "", "provider file (.csv, .csv.gz, .xlsx)")
	processCmd.Flags().BoolVar(&processOpts.Sample, "sample", false, "process the built-in five-provider sample")
	processCmd.Flags().IntVar(&processOpts.Limit, "limit", 0, "process at most N providers (0 = all)")
	processCmd.Flags().StringVar(&processOpts.Output, "output", "", "write full results as JSON to this path")
	processCmd.Flags().StringVar(&processOpts.Report, "report", "", "write a report (.csv or .xlsx) to this path")
	processCmd.Flags().BoolVar(&processOpts.NoProgress, "no-progress", false, "disable the progress bar")
	addEnvFlags(processCmd, &processOpts.envOptions)
	rootCmd.AddCommand(processCmd)
}
