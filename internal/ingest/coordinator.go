// Package ingest runs the BODS GTFS acquisition and load pipeline.
package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/joeshaw/bods-gtfs/internal/gtfs"
	"github.com/joeshaw/bods-gtfs/internal/schema"
)

// TableLoader loads one staged file into its table
type TableLoader interface {
	Load(ctx context.Context, table schema.Table, path string) (*gtfs.Result, error)
}

// Coordinator runs one loader per table and fires OnComplete once every
// table has loaded.
type Coordinator struct {
	loader  TableLoader
	workers int
	logger  logrus.FieldLogger

	// OnComplete runs exactly once per Run, and only when every table loaded.
	OnComplete func()
}

// NewCoordinator creates a coordinator. workers caps the number of loaders
// running at once; zero or less means one per table.
func NewCoordinator(loader TableLoader, workers int, logger logrus.FieldLogger) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{loader: loader, workers: workers, logger: logger}
}

// Run loads each table from its file under dir. Loaders do not cancel each
// other: every failure is collected and returned joined, in table order.
// Results are indexed like tables; a failed table's entry may be nil.
func (c *Coordinator) Run(ctx context.Context, tables []schema.Table, dir string) ([]*gtfs.Result, error) {
	results := make([]*gtfs.Result, len(tables))
	errs := make([]error, len(tables))
	var completed atomic.Int64

	var g errgroup.Group
	workers := c.workers
	if workers <= 0 {
		workers = len(tables)
	}
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := c.loader.Load(ctx, table, filepath.Join(dir, table.File))
			results[i] = res
			if err != nil {
				errs[i] = err
				return nil
			}
			n := completed.Add(1)
			c.logger.WithFields(logrus.Fields{"table": table.Name, "completed": n, "expected": len(tables)}).Debug("Loader finished")
			return nil
		})
	}
	g.Wait()

	if n := completed.Load(); n != int64(len(tables)) {
		c.logger.WithFields(logrus.Fields{"completed": n, "expected": len(tables)}).Warn("Not every table loaded, skipping cleanup")
		return results, errors.Join(errs...)
	}

	if c.OnComplete != nil {
		c.OnComplete()
	}
	return results, nil
}
