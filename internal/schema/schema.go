// Package schema is the registry of GTFS tables the loader knows how to
// ingest: the staged file each table comes from, its columns in canonical
// order, type hints, primary key and declared relations.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type is a column type hint used for DDL and value decoding.
type Type string

const (
	Text    Type = "TEXT"
	Integer Type = "INTEGER"
	Real    Type = "REAL"
)

// Column describes one column of a table.
type Column struct {
	Name string
	Type Type
}

// Relation is a declared reference from a column to another table. Relations
// are metadata only and are never emitted as SQL foreign keys: tables load
// concurrently in no particular order, and Loose relations (calendar) are
// routinely dangling in BODS data.
type Relation struct {
	Column    string
	RefTable  string
	RefColumn string
	Loose     bool
}

// Table describes one GTFS table.
type Table struct {
	Name       string
	File       string
	Columns    []Column
	PrimaryKey []string
	Relations  []Relation
	// Indexed lists columns queried by the read layer.
	Indexed []string
}

func text(names ...string) []Column {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: Text}
	}
	return cols
}

var (
	Agency = Table{
		Name:       "agency",
		File:       "agency.txt",
		Columns:    text("agency_id", "agency_name", "agency_url", "agency_timezone", "agency_lang", "agency_phone", "agency_noc"),
		PrimaryKey: []string{"agency_id"},
		Indexed:    []string{"agency_noc"},
	}

	Routes = Table{
		Name: "routes",
		File: "routes.txt",
		Columns: []Column{
			{"route_id", Text},
			{"agency_id", Text},
			{"route_short_name", Text},
			{"route_long_name", Text},
			{"route_type", Integer},
		},
		PrimaryKey: []string{"route_id"},
		Relations:  []Relation{{Column: "agency_id", RefTable: "agency", RefColumn: "agency_id"}},
		Indexed:    []string{"route_short_name"},
	}

	Calendar = Table{
		Name: "calendar",
		File: "calendar.txt",
		Columns: []Column{
			{"service_id", Text},
			{"monday", Integer},
			{"tuesday", Integer},
			{"wednesday", Integer},
			{"thursday", Integer},
			{"friday", Integer},
			{"saturday", Integer},
			{"sunday", Integer},
			{"start_date", Text},
			{"end_date", Text},
		},
		PrimaryKey: []string{"service_id"},
	}

	CalendarDates = Table{
		Name: "calendar_dates",
		File: "calendar_dates.txt",
		Columns: []Column{
			{"service_id", Text},
			{"date", Text},
			{"exception_type", Integer},
		},
		Relations: []Relation{{Column: "service_id", RefTable: "calendar", RefColumn: "service_id", Loose: true}},
		Indexed:   []string{"service_id"},
	}

	Trips = Table{
		Name: "trips",
		File: "trips.txt",
		Columns: []Column{
			{"route_id", Text},
			{"service_id", Text},
			{"trip_id", Text},
			{"trip_headsign", Text},
			{"direction_id", Integer},
			{"block_id", Text},
			{"shape_id", Text},
			{"wheelchair_accessible", Integer},
			{"trip_direction_name", Text},
			{"vehicle_journey_code", Text},
		},
		PrimaryKey: []string{"trip_id"},
		Relations: []Relation{
			{Column: "route_id", RefTable: "routes", RefColumn: "route_id"},
			{Column: "service_id", RefTable: "calendar", RefColumn: "service_id", Loose: true},
			{Column: "shape_id", RefTable: "shapes", RefColumn: "shape_id"},
		},
		Indexed: []string{"route_id"},
	}

	Shapes = Table{
		Name: "shapes",
		File: "shapes.txt",
		Columns: []Column{
			{"shape_id", Text},
			{"shape_pt_lat", Real},
			{"shape_pt_lon", Real},
			{"shape_pt_sequence", Integer},
			{"shape_dist_traveled", Real},
		},
		PrimaryKey: []string{"shape_id", "shape_pt_sequence"},
	}

	Stops = Table{
		Name: "stops",
		File: "stops.txt",
		Columns: []Column{
			{"stop_id", Text},
			{"stop_code", Text},
			{"stop_name", Text},
			{"stop_lat", Real},
			{"stop_lon", Real},
			{"wheelchair_boarding", Integer},
			{"location_type", Integer},
			{"parent_station", Text},
			{"platform_code", Text},
		},
		PrimaryKey: []string{"stop_id"},
		Relations:  []Relation{{Column: "parent_station", RefTable: "stops", RefColumn: "stop_id"}},
		Indexed:    []string{"stop_code", "parent_station", "stop_lat"},
	}

	StopTimes = Table{
		Name: "stop_times",
		File: "stop_times.txt",
		Columns: []Column{
			{"trip_id", Text},
			{"arrival_time", Text},
			{"departure_time", Text},
			{"stop_id", Text},
			{"stop_sequence", Integer},
			{"stop_headsign", Text},
			{"pickup_type", Integer},
			{"drop_off_type", Integer},
			{"shape_dist_traveled", Real},
			{"timepoint", Integer},
			{"stop_direction_name", Text},
		},
		Relations: []Relation{
			{Column: "trip_id", RefTable: "trips", RefColumn: "trip_id"},
			{Column: "stop_id", RefTable: "stops", RefColumn: "stop_id"},
		},
		Indexed: []string{"trip_id", "stop_id"},
	}
)

var all = []Table{Routes, Agency, StopTimes, Shapes, Stops, Trips, Calendar, CalendarDates}

// Tables returns every known table, in the order loaders are started.
func Tables() []Table {
	tables := make([]Table, len(all))
	copy(tables, all)
	return tables
}

// Names returns the names of every known table.
func Names() []string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a table by name.
func Lookup(name string) (Table, bool) {
	for _, t := range all {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Select resolves a list of table names. An empty list selects every table.
func Select(names []string) ([]Table, error) {
	if len(names) == 0 {
		return Tables(), nil
	}
	tables := make([]Table, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		t, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown table %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("table %q listed twice", name)
		}
		seen[name] = true
		tables = append(tables, t)
	}
	return tables, nil
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the canonical column order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// CreateSQL renders idempotent DDL for the table.
func (t Table) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, c := range t.Columns {
		fmt.Fprintf(&b, "    %s %s", c.Name, c.Type)
		if i < len(t.Columns)-1 || len(t.PrimaryKey) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "    PRIMARY KEY (%s)\n", strings.Join(t.PrimaryKey, ", "))
	}
	b.WriteString(")")
	return b.String()
}

// IndexSQL renders idempotent index DDL for the lookup columns.
func (t Table) IndexSQL() []string {
	stmts := make([]string, 0, len(t.Indexed))
	for _, col := range t.Indexed {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", t.Name, col, t.Name, col))
	}
	return stmts
}

// HeaderError reports a header that does not match the table definition.
type HeaderError struct {
	Table     string
	Missing   []string
	Unknown   []string
	Duplicate []string
	// Blank holds the 1-based positions of empty names before the last
	// named column.
	Blank []int
}

func (e *HeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing key columns "+strings.Join(e.Missing, ","))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown columns "+strings.Join(e.Unknown, ","))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate columns "+strings.Join(e.Duplicate, ","))
	}
	if len(e.Blank) > 0 {
		pos := make([]string, len(e.Blank))
		for i, p := range e.Blank {
			pos[i] = strconv.Itoa(p)
		}
		parts = append(parts, "blank column names at positions "+strings.Join(pos, ","))
	}
	return fmt.Sprintf("%s: header mismatch: %s", e.Table, strings.Join(parts, "; "))
}

// Validate checks a file header against the table. The header must name a
// subset of the table's columns, in any order, that includes every primary
// key column. Empty names after the last named column, left by a trailing
// delimiter, are dropped. It returns the Column for each remaining header
// position.
func (t Table) Validate(header []string) ([]Column, error) {
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}

	cols := make([]Column, len(header))
	seen := make(map[string]bool, len(header))
	herr := &HeaderError{Table: t.Name}

	for i, name := range header {
		if name == "" {
			herr.Blank = append(herr.Blank, i+1)
			continue
		}
		if seen[name] {
			herr.Duplicate = append(herr.Duplicate, name)
			continue
		}
		seen[name] = true

		c, ok := t.Column(name)
		if !ok {
			herr.Unknown = append(herr.Unknown, name)
			continue
		}
		cols[i] = c
	}
	for _, key := range t.PrimaryKey {
		if !seen[key] {
			herr.Missing = append(herr.Missing, key)
		}
	}

	if len(herr.Missing)+len(herr.Unknown)+len(herr.Duplicate)+len(herr.Blank) > 0 {
		sort.Strings(herr.Missing)
		return nil, herr
	}
	return cols, nil
}
