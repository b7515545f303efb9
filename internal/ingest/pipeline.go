package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/joeshaw/bods-gtfs/internal/gtfs"
	"github.com/joeshaw/bods-gtfs/internal/metrics"
	"github.com/joeshaw/bods-gtfs/internal/region"
	"github.com/joeshaw/bods-gtfs/internal/schema"
	"github.com/joeshaw/bods-gtfs/internal/store"
)

// Run stages, in the order they execute
const (
	StageConfig   = "config"
	StageStaging  = "staging"
	StageDownload = "download"
	StageExtract  = "extract"
	StageSnapshot = "snapshot"
	StageSchema   = "schema"
	StageLoad     = "load"
)

// StageError reports which stage of a run failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Pipeline
type Options struct {
	BaseURL      string
	StagingDir   string
	DatabasePath string
	// Tables defaults to every table in the registry.
	Tables     []schema.Table
	Workers    int
	BatchSize  int
	RunTimeout time.Duration
	Store      store.Options
	Splitter   gtfs.RowSplitter
}

// Report describes a finished run
type Report struct {
	RunID        string
	Region       region.Region
	URL          string
	ArchiveBytes int64
	Tables       []*gtfs.Result
	Rows         int
	Lines        int
	Cleanup      CleanupReport
	Duration     time.Duration
}

// Pipeline ingests a region's GTFS archive into a fresh store
type Pipeline struct {
	opts     Options
	acquirer *gtfs.Acquirer
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

// NewPipeline creates a new pipeline
func NewPipeline(opts Options, acquirer *gtfs.Acquirer, m *metrics.Metrics, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if acquirer == nil {
		acquirer = gtfs.NewAcquirer(nil, logger)
	}
	return &Pipeline{opts: opts, acquirer: acquirer, metrics: m, logger: logger}
}

// Ingest downloads the archive for regionCode, extracts it, discards the
// previous store and loads every configured table into a new one. The
// replace is not atomic: a failed run can leave a partially loaded store.
// On a load failure the partial report is returned with the error.
func (p *Pipeline) Ingest(ctx context.Context, regionCode string) (_ *Report, err error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	log := p.logger.WithFields(logrus.Fields{"run_id": report.RunID, "region": regionCode})

	defer func() {
		report.Duration = time.Since(start)
		p.metrics.RunFinished(report.Duration, err)
		if err != nil {
			log.WithError(err).Error("Ingestion failed")
		}
	}()

	r, err := region.Parse(regionCode)
	if err != nil {
		return nil, &StageError{Stage: StageConfig, Err: err}
	}
	report.Region = r

	tables := p.opts.Tables
	if len(tables) == 0 {
		tables = schema.Tables()
	}

	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	stale, err := ClearStaging(p.opts.StagingDir)
	if err != nil {
		return nil, &StageError{Stage: StageStaging, Err: err}
	}
	if stale > 0 {
		log.WithField("files", stale).Warn("Removed files left by a previous run")
	}

	report.URL = r.URL(p.opts.BaseURL)
	archive, n, err := p.acquirer.Fetch(ctx, report.URL, p.opts.StagingDir)
	if err != nil {
		return nil, &StageError{Stage: StageDownload, Err: err}
	}
	report.ArchiveBytes = n

	files, err := gtfs.Extract(ctx, archive, p.opts.StagingDir)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	log.WithField("files", len(files)).Info("Archive extracted")

	if err := Discard(p.opts.DatabasePath); err != nil {
		return nil, &StageError{Stage: StageSnapshot, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(p.opts.DatabasePath), 0o755); err != nil {
		return nil, &StageError{Stage: StageSchema, Err: err}
	}
	st, err := store.Open(p.opts.DatabasePath, p.opts.Store)
	if err != nil {
		return nil, &StageError{Stage: StageSchema, Err: err}
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx, tables); err != nil {
		return nil, &StageError{Stage: StageSchema, Err: err}
	}

	loader := gtfs.NewTableLoader(st, gtfs.Options{
		BatchSize: p.opts.BatchSize,
		Splitter:  p.opts.Splitter,
		Observer:  p.metrics,
		Logger:    log,
	})
	coord := NewCoordinator(loader, p.opts.Workers, log)
	coord.OnComplete = func() {
		report.Cleanup = Cleanup(p.opts.StagingDir, log)
	}

	report.Tables, err = coord.Run(ctx, tables, p.opts.StagingDir)
	for _, res := range report.Tables {
		if res != nil {
			report.Rows += res.Rows
			report.Lines += res.Lines
		}
	}
	if err != nil {
		return report, &StageError{Stage: StageLoad, Err: err}
	}

	log.WithFields(logrus.Fields{
		"tables":   len(report.Tables),
		"rows":     report.Rows,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Ingestion completed")
	return report, nil
}
