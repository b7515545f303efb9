package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/bods-gtfs/internal/models"
	"github.com/joeshaw/bods-gtfs/internal/schema"
)

// BoundingBox is a latitude/longitude rectangle. Bounds are exclusive.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// NewBoundingBox validates and builds a bounding box
func NewBoundingBox(minLat, maxLat, minLng, maxLng float64) (BoundingBox, error) {
	if minLat >= maxLat || minLng >= maxLng {
		return BoundingBox{}, fmt.Errorf("invalid bounding box: lat %v..%v lng %v..%v", minLat, maxLat, minLng, maxLng)
	}
	return BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}, nil
}

// Contains reports whether the point lies strictly inside the box
func (b BoundingBox) Contains(lat, lng float64) bool {
	return b.MinLat < lat && lat < b.MaxLat && b.MinLng < lng && lng < b.MaxLng
}

// selectFrom renders a SELECT of every column of t. Absent text becomes ""
// and numeric cells that kept a non-numeric value read back as NULL.
func selectFrom(t schema.Table) string {
	exprs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		switch c.Type {
		case schema.Integer:
			exprs[i] = fmt.Sprintf("CASE WHEN typeof(%[1]s) = 'integer' THEN %[1]s END AS %[1]s", c.Name)
		case schema.Real:
			exprs[i] = fmt.Sprintf("CASE WHEN typeof(%[1]s) IN ('integer', 'real') THEN %[1]s END AS %[1]s", c.Name)
		default:
			exprs[i] = fmt.Sprintf("COALESCE(%[1]s, '') AS %[1]s", c.Name)
		}
	}
	return "SELECT " + strings.Join(exprs, ", ") + " FROM " + t.Name
}

// get runs a single-row query, mapping no rows to a nil result
func get[T any](ctx context.Context, s *Store, query string, args ...any) (*T, error) {
	var v T
	if err := s.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func list[T any](ctx context.Context, s *Store, query string, args ...any) ([]*T, error) {
	items := []*T{}
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// likeContains builds a LIKE pattern matching values containing substr
func likeContains(substr string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(substr) + "%"
}

// Agency methods
func (s *Store) GetAgency(ctx context.Context, id string) (*models.Agency, error) {
	return get[models.Agency](ctx, s, selectFrom(schema.Agency)+" WHERE agency_id = ?", id)
}

// GetAgenciesByName returns agencies whose name contains substr
func (s *Store) GetAgenciesByName(ctx context.Context, substr string) ([]*models.Agency, error) {
	return list[models.Agency](ctx, s, selectFrom(schema.Agency)+` WHERE agency_name LIKE ? ESCAPE '\' ORDER BY agency_name`, likeContains(substr))
}

// GetAgencyByNOC looks up an agency by its National Operator Code
func (s *Store) GetAgencyByNOC(ctx context.Context, noc string) (*models.Agency, error) {
	return get[models.Agency](ctx, s, selectFrom(schema.Agency)+" WHERE agency_noc = ? LIMIT 1", noc)
}

func (s *Store) GetAllAgencies(ctx context.Context) ([]*models.Agency, error) {
	return list[models.Agency](ctx, s, selectFrom(schema.Agency)+" ORDER BY agency_id")
}

// Route methods
func (s *Store) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	return get[models.Route](ctx, s, selectFrom(schema.Routes)+" WHERE route_id = ?", id)
}

func (s *Store) GetRoutesByShortName(ctx context.Context, name string) ([]*models.Route, error) {
	return list[models.Route](ctx, s, selectFrom(schema.Routes)+" WHERE route_short_name = ? ORDER BY route_id", name)
}

func (s *Store) GetAllRoutes(ctx context.Context) ([]*models.Route, error) {
	return list[models.Route](ctx, s, selectFrom(schema.Routes)+" ORDER BY route_id")
}

// Trip methods
func (s *Store) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	return get[models.Trip](ctx, s, selectFrom(schema.Trips)+" WHERE trip_id = ?", id)
}

func (s *Store) GetTripsByRoute(ctx context.Context, routeID string) ([]*models.Trip, error) {
	return list[models.Trip](ctx, s, selectFrom(schema.Trips)+" WHERE route_id = ? ORDER BY rowid", routeID)
}

// GetShapePoints returns a shape's points in sequence order
func (s *Store) GetShapePoints(ctx context.Context, shapeID string) ([]*models.ShapePoint, error) {
	return list[models.ShapePoint](ctx, s, selectFrom(schema.Shapes)+" WHERE shape_id = ? ORDER BY shape_pt_sequence, rowid", shapeID)
}

// StopTime methods
func (s *Store) GetStopTimesByTrip(ctx context.Context, tripID string) ([]*models.StopTime, error) {
	return list[models.StopTime](ctx, s, selectFrom(schema.StopTimes)+" WHERE trip_id = ? ORDER BY stop_sequence, rowid", tripID)
}

func (s *Store) GetStopTimesByStop(ctx context.Context, stopID string) ([]*models.StopTime, error) {
	return list[models.StopTime](ctx, s, selectFrom(schema.StopTimes)+" WHERE stop_id = ? ORDER BY rowid", stopID)
}

// Stop methods
func (s *Store) GetStop(ctx context.Context, id string) (*models.Stop, error) {
	return get[models.Stop](ctx, s, selectFrom(schema.Stops)+" WHERE stop_id = ?", id)
}

// GetStopByCode looks up a stop by the code printed on its signage
func (s *Store) GetStopByCode(ctx context.Context, code string) (*models.Stop, error) {
	return get[models.Stop](ctx, s, selectFrom(schema.Stops)+" WHERE stop_code = ? LIMIT 1", code)
}

// GetStopsByStation returns the stops whose parent station is parent
func (s *Store) GetStopsByStation(ctx context.Context, parent string) ([]*models.Stop, error) {
	return list[models.Stop](ctx, s, selectFrom(schema.Stops)+" WHERE parent_station = ? ORDER BY stop_id", parent)
}

// GetStopsInBounds returns the stops strictly inside the box. Stops lying
// exactly on an edge are excluded.
func (s *Store) GetStopsInBounds(ctx context.Context, b BoundingBox) ([]*models.Stop, error) {
	return list[models.Stop](ctx, s,
		selectFrom(schema.Stops)+" WHERE stop_lat > ? AND stop_lat < ? AND stop_lon > ? AND stop_lon < ? ORDER BY stop_id",
		b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
}

// Calendar methods
func (s *Store) GetCalendar(ctx context.Context, serviceID string) (*models.Calendar, error) {
	return get[models.Calendar](ctx, s, selectFrom(schema.Calendar)+" WHERE service_id = ?", serviceID)
}

func (s *Store) GetCalendarDates(ctx context.Context, serviceID string) ([]*models.CalendarDate, error) {
	return list[models.CalendarDate](ctx, s, selectFrom(schema.CalendarDates)+" WHERE service_id = ? ORDER BY rowid", serviceID)
}
