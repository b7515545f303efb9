package gtfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/joeshaw/bods-gtfs/internal/schema"
)

// DefaultBatchSize is the number of rows written per insert
const DefaultBatchSize = 2056

// ErrNoHeader is returned for a staged file with no header line
var ErrNoHeader = errors.New("missing header line")

// BatchWriter persists one batch of decoded rows. columns are the header's
// column names; each row holds one value per column.
type BatchWriter interface {
	InsertBatch(ctx context.Context, table schema.Table, columns []string, rows [][]any) error
}

// BatchObserver is notified of load progress
type BatchObserver interface {
	BatchInserted(table string, rows int)
	LoadFailed(table string)
}

// ReadError reports a failure reading a staged file
type ReadError struct {
	Table string
	File  string
	Line  int
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: reading %s at line %d: %v", e.Table, e.File, e.Line, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// BatchError reports a failed insert and the 1-based data rows it covered
type BatchError struct {
	Table    string
	FirstRow int
	LastRow  int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: inserting rows %d-%d: %v", e.Table, e.FirstRow, e.LastRow, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Options configures a TableLoader
type Options struct {
	BatchSize int
	Splitter  RowSplitter
	Observer  BatchObserver
	Logger    logrus.FieldLogger
}

// Result summarizes one table load
type Result struct {
	Table   string
	File    string
	Rows    int
	Batches int
	// Lines is the physical line count of the file, header included.
	Lines  int
	Blank  int
	Ragged int
}

// TableLoader streams staged files into the store
type TableLoader struct {
	writer    BatchWriter
	batchSize int
	splitter  RowSplitter
	observer  BatchObserver
	logger    logrus.FieldLogger
}

// NewTableLoader creates a new table loader
func NewTableLoader(w BatchWriter, opts Options) *TableLoader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Splitter == nil {
		opts.Splitter = DelimitedSplitter{Delimiter: ","}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &TableLoader{
		writer:    w,
		batchSize: opts.BatchSize,
		splitter:  opts.Splitter,
		observer:  opts.Observer,
		logger:    opts.Logger,
	}
}

// BatchSize returns the configured rows per insert
func (l *TableLoader) BatchSize() int {
	return l.batchSize
}

// Load streams the file at path into table. Decoded rows pass through a
// channel holding at most one batch, so reading stalls while the writer is
// behind. Batches are written one after another in file order.
func (l *TableLoader) Load(ctx context.Context, table schema.Table, path string) (*Result, error) {
	res, err := l.load(ctx, table, path)
	if err != nil && l.observer != nil {
		l.observer.LoadFailed(table.Name)
	}
	return res, err
}

func (l *TableLoader) load(ctx context.Context, table schema.Table, path string) (*Result, error) {
	file := filepath.Base(path)
	log := l.logger.WithFields(logrus.Fields{"table": table.Name, "file": file})

	f, err := os.Open(path)
	if err != nil {
		return nil, &ReadError{Table: table.Name, File: file, Err: err}
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	headerLine, err := r.ReadString('\n')
	eof := errors.Is(err, io.EOF)
	if err != nil && !eof {
		return nil, &ReadError{Table: table.Name, File: file, Line: 1, Err: err}
	}
	if strings.TrimSpace(trimLine(headerLine)) == "" {
		return nil, &ReadError{Table: table.Name, File: file, Line: 1, Err: ErrNoHeader}
	}

	header := parseHeader(headerLine, l.splitter)
	cols, err := table.Validate(header)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(cols))
	for i, c := range cols {
		columns[i] = c.Name
	}

	res := &Result{Table: table.Name, File: file}
	rows := make(chan []any, l.batchSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := CountLines(gctx, path)
		if err != nil {
			return &ReadError{Table: table.Name, File: file, Err: err}
		}
		res.Lines = n
		return nil
	})

	g.Go(func() error {
		defer close(rows)
		line := 1
		for !eof {
			text, err := r.ReadString('\n')
			if errors.Is(err, io.EOF) {
				eof = true
				if text == "" {
					break
				}
			} else if err != nil {
				return &ReadError{Table: table.Name, File: file, Line: line + 1, Err: err}
			}
			line++

			text = trimLine(text)
			if strings.TrimSpace(text) == "" {
				res.Blank++
				continue
			}
			row, ragged := decodeRow(l.splitter.Split(text), cols)
			if ragged {
				res.Ragged++
			}

			select {
			case rows <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		batch := make([][]any, 0, l.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			first := res.Rows + 1
			if err := l.writer.InsertBatch(gctx, table, columns, batch); err != nil {
				return &BatchError{Table: table.Name, FirstRow: first, LastRow: res.Rows + len(batch), Err: err}
			}
			res.Rows += len(batch)
			res.Batches++
			if l.observer != nil {
				l.observer.BatchInserted(table.Name, len(batch))
			}
			log.WithFields(logrus.Fields{"batch": res.Batches, "rows": res.Rows}).Debug("Batch inserted")
			batch = make([][]any, 0, l.batchSize)
			return nil
		}

		for row := range rows {
			batch = append(batch, row)
			if len(batch) == l.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Table load failed")
		return res, err
	}

	if want := res.Lines - 1 - res.Blank; res.Rows != want {
		log.WithFields(logrus.Fields{"rows": res.Rows, "expected": want}).Warn("Row count does not match line count")
	}
	if res.Ragged > 0 {
		log.WithField("ragged", res.Ragged).Warn("Rows had more fields than the header")
	}

	log.WithFields(logrus.Fields{"rows": res.Rows, "batches": res.Batches, "lines": res.Lines}).Info("Table loaded")
	return res, nil
}
