package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeshaw/bods-gtfs/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "database.sqlite"), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background(), schema.Tables()))
	return s
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.EnsureSchema(context.Background(), schema.Tables()))

	for _, table := range schema.Tables() {
		n, err := s.Count(context.Background(), table)
		require.NoError(t, err, table.Name)
		assert.Zero(t, n, table.Name)
	}
}

func TestAgencyQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// agency_noc is absent from the header, so it is stored as NULL
	err := s.InsertBatch(ctx, schema.Agency, []string{"agency_timezone", "agency_name", "agency_url", "agency_id"}, [][]any{
		{"Europe/London", "First Bus_Leeds", "https://www.firstgroup.com", "OP1"},
		{"Europe/London", "Arriva 100%", "https://www.arrivabus.co.uk", "OP2"},
	})
	require.NoError(t, err)
	require.NoError(t, s.InsertBatch(ctx, schema.Agency, []string{"agency_id", "agency_name", "agency_noc"}, [][]any{
		{"OP3", "Stagecoach", "SCNE"},
	}))

	n, err := s.Count(ctx, schema.Agency)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	a, err := s.GetAgency(ctx, "OP1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "First Bus_Leeds", a.Name)
	assert.Equal(t, "Europe/London", a.Timezone)
	assert.Equal(t, "", a.NOC)

	missing, err := s.GetAgency(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byNOC, err := s.GetAgencyByNOC(ctx, "SCNE")
	require.NoError(t, err)
	require.NotNil(t, byNOC)
	assert.Equal(t, "OP3", byNOC.ID)

	// LIKE wildcards in the search term match literally
	found, err := s.GetAgenciesByName(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "OP2", found[0].ID)

	found, err = s.GetAgenciesByName(ctx, "t_b")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = s.GetAgenciesByName(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestStopsInBoundsStrict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, schema.Stops, []string{"stop_id", "stop_name", "stop_lat", "stop_lon", "stop_code", "parent_station"}, [][]any{
		{"inside", "Inside", 53.5, -1.5, "leeabc", "station"},
		{"edge-lat", "On min lat", 53.0, -1.5, nil, "station"},
		{"edge-lng", "On max lng", 53.5, -1.0, nil, nil},
		{"outside", "Outside", 54.5, -1.5, nil, nil},
	}))

	box, err := NewBoundingBox(53.0, 54.0, -2.0, -1.0)
	require.NoError(t, err)

	stops, err := s.GetStopsInBounds(ctx, box)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "inside", stops[0].ID)
	assert.InDelta(t, 53.5, *stops[0].Latitude, 1e-9)

	assert.True(t, box.Contains(53.5, -1.5))
	assert.False(t, box.Contains(53.0, -1.5))
	assert.False(t, box.Contains(53.5, -1.0))

	byCode, err := s.GetStopByCode(ctx, "leeabc")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, "inside", byCode.ID)

	children, err := s.GetStopsByStation(ctx, "station")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestNewBoundingBoxInvalid(t *testing.T) {
	_, err := NewBoundingBox(54, 53, -2, -1)
	assert.Error(t, err)
	_, err = NewBoundingBox(53, 54, -1, -1)
	assert.Error(t, err)
}

func TestSequenceOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, schema.StopTimes, []string{"trip_id", "stop_id", "stop_sequence", "arrival_time"}, [][]any{
		{"T1", "C", int64(3), "08:10:00"},
		{"T1", "A", int64(1), "08:00:00"},
		{"T1", "B", int64(2), "08:05:00"},
		{"T2", "A", int64(1), "09:00:00"},
	}))

	times, err := s.GetStopTimesByTrip(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, times, 3)
	assert.Equal(t, "A", times[0].StopID)
	assert.Equal(t, "B", times[1].StopID)
	assert.Equal(t, "C", times[2].StopID)
	assert.Nil(t, times[0].PickupType)

	byStop, err := s.GetStopTimesByStop(ctx, "A")
	require.NoError(t, err)
	require.Len(t, byStop, 2)
	assert.Equal(t, "T1", byStop[0].TripID)

	require.NoError(t, s.InsertBatch(ctx, schema.Shapes, []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"}, [][]any{
		{"S1", 53.1, -1.1, int64(2)},
		{"S1", 53.0, -1.0, int64(1)},
	}))
	points, err := s.GetShapePoints(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1, *points[0].Sequence)
	assert.Nil(t, points[0].DistTraveled)
}

func TestUnparsedNumericReadsAsNull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBatch(ctx, schema.Routes, []string{"route_id", "route_short_name", "route_type"}, [][]any{
		{"R1", "1", "bus"},
		{"R2", "1", int64(3)},
	}))

	routes, err := s.GetRoutesByShortName(ctx, "1")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Nil(t, routes[0].Type)
	require.NotNil(t, routes[1].Type)
	assert.Equal(t, 3, *routes[1].Type)
}

func TestCalendarLoose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// calendar_dates may reference a service with no calendar row
	require.NoError(t, s.InsertBatch(ctx, schema.CalendarDates, []string{"service_id", "date", "exception_type"}, [][]any{
		{"ghost", "20240101", int64(2)},
		{"ghost", "20240102", int64(1)},
	}))

	cal, err := s.GetCalendar(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, cal)

	dates, err := s.GetCalendarDates(ctx, "ghost")
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "20240101", dates[0].Date)
}

func TestInsertBatchDuplicateKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertBatch(ctx, schema.Agency, []string{"agency_id", "agency_name"}, [][]any{
		{"OP1", "One"},
		{"OP1", "Again"},
	})
	require.Error(t, err)

	// the failed batch is rolled back as a whole
	n, err := s.Count(ctx, schema.Agency)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertBatchUnknownColumn(t *testing.T) {
	s := openTestStore(t)
	err := s.InsertBatch(context.Background(), schema.Agency, []string{"agency_id", "route_id"}, [][]any{{"a", "b"}})
	assert.Error(t, err)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestInsertBatchCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)"))
	prep.ExpectExec().WithArgs("S1", "20240101", int64(1)).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("S1", "20240102", nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.InsertBatch(context.Background(), schema.CalendarDates, []string{"service_id", "date", "exception_type"}, [][]any{
		{"S1", "20240101", int64(1)},
		{"S1", "20240102", nil},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO agency (agency_id) VALUES (?)"))
	prep.ExpectExec().WithArgs("OP1").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("OP2").WillReturnError(boom)
	mock.ExpectRollback()

	err := s.InsertBatch(context.Background(), schema.Agency, []string{"agency_id"}, [][]any{{"OP1"}, {"OP2"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.InsertBatch(context.Background(), schema.Agency, []string{"agency_id"}, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
