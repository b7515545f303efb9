package gtfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeshaw/bods-gtfs/internal/schema"
)

type insertCall struct {
	table   string
	columns []string
	rows    [][]any
}

// recordingWriter keeps every batch it is given
type recordingWriter struct {
	mu     sync.Mutex
	calls  []insertCall
	failAt int // 1-based call number to fail, 0 never
}

func (w *recordingWriter) InsertBatch(ctx context.Context, table schema.Table, columns []string, rows [][]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.calls)+1 == w.failAt {
		return errors.New("database is locked")
	}
	w.calls = append(w.calls, insertCall{table: table.Name, columns: columns, rows: rows})
	return nil
}

func (w *recordingWriter) allRows() [][]any {
	var all [][]any
	for _, c := range w.calls {
		all = append(all, c.rows...)
	}
	return all
}

type countingObserver struct {
	mu      sync.Mutex
	rows    int
	batches int
	failed  int
}

func (o *countingObserver) BatchInserted(table string, rows int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows += rows
	o.batches++
}

func (o *countingObserver) LoadFailed(table string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func stopTimesFile(n int) string {
	var b strings.Builder
	b.WriteString("trip_id,arrival_time,departure_time,stop_id,stop_sequence\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "T1,08:00:00,08:00:00,S%d,%d\n", i, i)
	}
	return b.String()
}

func TestLoadAgencyExample(t *testing.T) {
	path := writeFile(t, "agency.txt",
		"agency_id,agency_name,agency_url,agency_timezone,agency_lang,agency_phone,agency_noc\n"+
			"OP1,First Leeds,https://www.firstgroup.com,Europe/London,EN,,FLDS\n"+
			"OP2,Arriva Yorkshire,https://www.arrivabus.co.uk,Europe/London,EN,0344 800 4411,YWAX\n"+
			"OP3,Stagecoach,https://www.stagecoachbus.com,Europe/London,EN,,SYRK\n")

	w := &recordingWriter{}
	logger, _ := quietLogger()
	res, err := NewTableLoader(w, Options{Logger: logger}).Load(context.Background(), schema.Agency, path)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, 4, res.Lines)
	require.Len(t, w.calls, 1)
	assert.Equal(t, []string{"agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone", "agency_noc"}, w.calls[0].columns)
	assert.Equal(t, []any{"OP2", "Arriva Yorkshire", "https://www.arrivabus.co.uk", "Europe/London", "EN", "0344 800 4411", "YWAX"}, w.calls[0].rows[1])
}

func TestLoadHeaderOrderIsFileOrder(t *testing.T) {
	// canonical order puts route_id first; the file does not
	path := writeFile(t, "routes.txt",
		"route_type,route_short_name,route_id,agency_id,route_long_name\n"+
			"3,1,R1,OP1,Leeds - Bradford\n")

	w := &recordingWriter{}
	logger, _ := quietLogger()
	_, err := NewTableLoader(w, Options{Logger: logger}).Load(context.Background(), schema.Routes, path)
	require.NoError(t, err)

	require.Len(t, w.calls, 1)
	assert.Equal(t, []string{"route_type", "route_short_name", "route_id", "agency_id", "route_long_name"}, w.calls[0].columns)
	assert.Equal(t, []any{int64(3), "1", "R1", "OP1", "Leeds - Bradford"}, w.calls[0].rows[0])
}

func TestLoadBatchSizes(t *testing.T) {
	tests := []struct {
		rows    int
		batches int
		last    int
	}{
		{1, 1, 1},
		{DefaultBatchSize, 1, DefaultBatchSize},
		{DefaultBatchSize + 1, 2, 1},
		{2*DefaultBatchSize + 100, 3, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rows), func(t *testing.T) {
			path := writeFile(t, "stop_times.txt", stopTimesFile(tt.rows))
			w := &recordingWriter{}
			obs := &countingObserver{}
			logger, _ := quietLogger()

			res, err := NewTableLoader(w, Options{Observer: obs, Logger: logger}).Load(context.Background(), schema.StopTimes, path)
			require.NoError(t, err)

			require.Len(t, w.calls, tt.batches)
			for _, c := range w.calls {
				assert.LessOrEqual(t, len(c.rows), DefaultBatchSize)
			}
			assert.Len(t, w.calls[len(w.calls)-1].rows, tt.last)

			assert.Equal(t, tt.rows, res.Rows)
			assert.Equal(t, res.Lines-1, res.Rows)
			assert.Equal(t, tt.rows, obs.rows)
			assert.Equal(t, tt.batches, obs.batches)

			// stop_sequence is column 4 and increases with file order
			for i, row := range w.allRows() {
				assert.Equal(t, int64(i+1), row[4])
			}
		})
	}
}

func TestLoadCustomBatchSize(t *testing.T) {
	path := writeFile(t, "stop_times.txt", stopTimesFile(10))
	w := &recordingWriter{}
	logger, _ := quietLogger()

	l := NewTableLoader(w, Options{BatchSize: 3, Logger: logger})
	assert.Equal(t, 3, l.BatchSize())

	res, err := l.Load(context.Background(), schema.StopTimes, path)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Batches)
	assert.Len(t, w.calls[3].rows, 1)
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeFile(t, "calendar_dates.txt", "service_id,date,exception_type\n")
	w := &recordingWriter{}
	logger, hook := quietLogger()

	res, err := NewTableLoader(w, Options{Logger: logger}).Load(context.Background(), schema.CalendarDates, path)
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
	assert.Zero(t, res.Batches)
	assert.Empty(t, w.calls)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
	}
}

func TestLoadMessyLines(t *testing.T) {
	path := writeFile(t, "stops.txt",
		"\ufeffstop_id,stop_name,stop_lat,stop_lon\r\n"+
			"S1,Park Row,53.79,-1.54\r\n"+
			"\r\n"+
			"S2,Short\r\n"+
			"S3,Long,53.8,-1.5,extra\r\n"+
			"S4,No newline,,-1.5")

	w := &recordingWriter{}
	logger, hook := quietLogger()
	res, err := NewTableLoader(w, Options{Logger: logger}).Load(context.Background(), schema.Stops, path)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 6, res.Lines)
	assert.Equal(t, 1, res.Blank)
	assert.Equal(t, 1, res.Ragged)

	rows := w.allRows()
	require.Len(t, rows, 4)
	assert.Equal(t, []any{"S1", "Park Row", 53.79, -1.54}, rows[0])
	assert.Equal(t, []any{"S2", "Short", nil, nil}, rows[1])
	assert.Equal(t, []any{"S3", "Long", 53.8, -1.5}, rows[2])
	assert.Equal(t, []any{"S4", "No newline", nil, -1.5}, rows[3])

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["ragged"] == 1 {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestLoadHeaderMismatch(t *testing.T) {
	path := writeFile(t, "trips.txt", "route_id,service_id,trip_name\nR1,S1,x\n")
	w := &recordingWriter{}
	obs := &countingObserver{}
	logger, _ := quietLogger()

	_, err := NewTableLoader(w, Options{Observer: obs, Logger: logger}).Load(context.Background(), schema.Trips, path)
	require.Error(t, err)

	var herr *schema.HeaderError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, []string{"trip_id"}, herr.Missing)
	assert.Equal(t, []string{"trip_name"}, herr.Unknown)
	assert.Empty(t, w.calls)
	assert.Equal(t, 1, obs.failed)
}

func TestLoadTrailingDelimiter(t *testing.T) {
	path := writeFile(t, "agency.txt", "agency_id,agency_name,\nOP1,First,\nOP2,Arriva,,\n")
	w := &recordingWriter{}
	logger, _ := quietLogger()

	res, err := NewTableLoader(w, Options{Logger: logger}).Load(context.Background(), schema.Agency, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Zero(t, res.Ragged)

	require.Len(t, w.calls, 1)
	assert.Equal(t, []string{"agency_id", "agency_name"}, w.calls[0].columns)
	assert.Equal(t, [][]any{{"OP1", "First"}, {"OP2", "Arriva"}}, w.calls[0].rows)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "agency.txt", "")
	logger, _ := quietLogger()

	_, err := NewTableLoader(&recordingWriter{}, Options{Logger: logger}).Load(context.Background(), schema.Agency, path)
	var rerr *ReadError
	require.True(t, errors.As(err, &rerr))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestLoadMissingFile(t *testing.T) {
	logger, _ := quietLogger()
	_, err := NewTableLoader(&recordingWriter{}, Options{Logger: logger}).Load(context.Background(), schema.Agency, filepath.Join(t.TempDir(), "agency.txt"))

	var rerr *ReadError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "agency", rerr.Table)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWriteErrorReportsRange(t *testing.T) {
	path := writeFile(t, "stop_times.txt", stopTimesFile(10))
	w := &recordingWriter{failAt: 2}
	obs := &countingObserver{}
	logger, _ := quietLogger()

	_, err := NewTableLoader(w, Options{BatchSize: 4, Observer: obs, Logger: logger}).Load(context.Background(), schema.StopTimes, path)
	require.Error(t, err)

	var berr *BatchError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "stop_times", berr.Table)
	assert.Equal(t, 5, berr.FirstRow)
	assert.Equal(t, 8, berr.LastRow)
	assert.Contains(t, err.Error(), "rows 5-8")

	// nothing after the failed batch is written
	assert.Len(t, w.calls, 1)
	assert.Equal(t, 1, obs.failed)
}

func TestLoadCancelled(t *testing.T) {
	path := writeFile(t, "stop_times.txt", stopTimesFile(100))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger, _ := quietLogger()

	_, err := NewTableLoader(&recordingWriter{}, Options{BatchSize: 10, Logger: logger}).Load(ctx, schema.StopTimes, path)
	assert.ErrorIs(t, err, context.Canceled)
}

// pipeSplitter stands in for a custom splitter
type pipeSplitter struct{}

func (pipeSplitter) Split(line string) []string { return strings.Split(line, "|") }

func TestLoadCustomSplitter(t *testing.T) {
	path := writeFile(t, "calendar_dates.txt", "service_id|date|exception_type\nS1|20240101|1\n")
	w := &recordingWriter{}
	logger, _ := quietLogger()

	_, err := NewTableLoader(w, Options{Splitter: pipeSplitter{}, Logger: logger}).Load(context.Background(), schema.CalendarDates, path)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"S1", "20240101", int64(1)}}, w.allRows())
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\n\nb\n", 3},
	}
	for _, tt := range tests {
		path := writeFile(t, "f.txt", tt.content)
		n, err := CountLines(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "%q", tt.content)
	}
}
