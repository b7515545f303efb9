package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joeshaw/bods-gtfs/internal/gtfs"
	"github.com/joeshaw/bods-gtfs/internal/ingest"
	"github.com/joeshaw/bods-gtfs/internal/metrics"
	"github.com/joeshaw/bods-gtfs/internal/region"
	"github.com/joeshaw/bods-gtfs/internal/schema"
	"github.com/joeshaw/bods-gtfs/internal/store"
)

var (
	ingestRegion  string
	ingestEvery   time.Duration
	metricsListen string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [region]",
	Short: "Download a region's GTFS archive and load it into the database",
	Long: `Download the GTFS archive for a region, replace the database with its
contents and remove the staged files. Run "bods-gtfs regions" for the list of
region codes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := ingestRegion
		if len(args) == 1 {
			code = args[0]
		}
		if code == "" {
			return errors.New("a region is required, as an argument or with --region")
		}
		return runIngest(cmd.Context(), code)
	},
}

func init() {
	flags := ingestCmd.Flags()
	flags.StringVar(&ingestRegion, "region", "", "region code to ingest")
	flags.DurationVar(&ingestEvery, "every", 0, "repeat the ingest at this interval until interrupted")
	flags.StringVar(&metricsListen, "metrics-listen", "", "address to expose /metrics on while ingesting")
	flags.String("base-url", region.DefaultBaseURL, "BODS GTFS download endpoint")
	flags.Int("batch-size", gtfs.DefaultBatchSize, "rows per insert transaction")
	flags.Int("workers", 0, "tables loaded at once (0 loads every table at once)")
	flags.StringSlice("tables", nil, "tables to load (default all)")
	flags.Duration("http-timeout", 10*time.Minute, "archive download timeout")
	flags.Duration("run-timeout", 0, "overall timeout of one run (0 for none)")

	for _, name := range []string{"base-url", "batch-size", "workers", "tables", "http-timeout", "run-timeout"} {
		_ = viper.BindPFlag(configKey(name), flags.Lookup(name))
	}
}

func newPipeline(m *metrics.Metrics) (*ingest.Pipeline, error) {
	tables, err := schema.Select(cfg.Tables)
	if err != nil {
		return nil, err
	}

	opts := ingest.Options{
		BaseURL:      cfg.BaseURL,
		StagingDir:   cfg.StagingPath(),
		DatabasePath: cfg.DatabasePath(),
		Tables:       tables,
		Workers:      cfg.Workers,
		BatchSize:    cfg.BatchSize,
		RunTimeout:   cfg.RunTimeout,
		Store: store.Options{
			MaxOpenConns: cfg.MaxOpenConns,
			BusyTimeout:  cfg.BusyTimeout,
		},
	}
	acquirer := gtfs.NewAcquirer(&http.Client{Timeout: cfg.HTTPTimeout}, logger)
	return ingest.NewPipeline(opts, acquirer, m, logger), nil
}

func runIngest(ctx context.Context, code string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	pipeline, err := newPipeline(m)
	if err != nil {
		return err
	}

	if metricsListen != "" {
		server := &http.Server{Addr: metricsListen, Handler: m.Handler()}
		go func() {
			logger.Infof("Metrics listening on %s", metricsListen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("Metrics server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	if err := ingestOnce(ctx, pipeline, code); err != nil && ingestEvery <= 0 {
		return err
	}
	if ingestEvery <= 0 {
		return nil
	}

	ticker := time.NewTicker(ingestEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// failures are logged by the pipeline; the next tick retries
			ingestOnce(ctx, pipeline, code)
		case <-ctx.Done():
			logger.Info("Stopping scheduled ingest")
			return nil
		}
	}
}

func ingestOnce(ctx context.Context, pipeline *ingest.Pipeline, code string) error {
	report, err := pipeline.Ingest(ctx, code)
	if report == nil {
		return err
	}

	for _, res := range report.Tables {
		if res == nil {
			continue
		}
		logger.WithFields(logrus.Fields{
			"run_id":  report.RunID,
			"table":   res.Table,
			"rows":    res.Rows,
			"batches": res.Batches,
			"blank":   res.Blank,
			"ragged":  res.Ragged,
		}).Debug("Table summary")
	}
	if err == nil {
		logger.WithFields(logrus.Fields{
			"run_id":        report.RunID,
			"region":        report.Region.Name,
			"archive_bytes": report.ArchiveBytes,
			"rows":          report.Rows,
			"files_removed": report.Cleanup.Removed,
			"duration":      report.Duration.Round(time.Millisecond),
		}).Info("Database updated")
	}
	return err
}
