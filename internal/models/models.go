package models

// Optional numeric columns are pointers: an empty field in the source file
// is stored as NULL.

// Agency represents a transit agency
type Agency struct {
	ID       string `db:"agency_id" json:"id"`
	Name     string `db:"agency_name" json:"name"`
	URL      string `db:"agency_url" json:"url"`
	Timezone string `db:"agency_timezone" json:"timezone"`
	Lang     string `db:"agency_lang" json:"lang,omitzero"`
	Phone    string `db:"agency_phone" json:"phone,omitzero"`
	NOC      string `db:"agency_noc" json:"noc,omitzero"`
}

// Route represents a transit route
type Route struct {
	ID        string `db:"route_id" json:"id"`
	AgencyID  string `db:"agency_id" json:"agency_id,omitzero"`
	ShortName string `db:"route_short_name" json:"short_name"`
	LongName  string `db:"route_long_name" json:"long_name"`
	Type      *int   `db:"route_type" json:"type"`
}

// Stop represents a transit stop
type Stop struct {
	ID                 string   `db:"stop_id" json:"id"`
	Code               string   `db:"stop_code" json:"code,omitzero"`
	Name               string   `db:"stop_name" json:"name"`
	Latitude           *float64 `db:"stop_lat" json:"latitude"`
	Longitude          *float64 `db:"stop_lon" json:"longitude"`
	WheelchairBoarding *int     `db:"wheelchair_boarding" json:"wheelchair_boarding,omitempty"`
	LocationType       *int     `db:"location_type" json:"location_type,omitempty"`
	ParentStation      string   `db:"parent_station" json:"parent_station,omitzero"`
	PlatformCode       string   `db:"platform_code" json:"platform_code,omitzero"`
}

// Trip represents a transit trip
type Trip struct {
	ID                   string `db:"trip_id" json:"id"`
	RouteID              string `db:"route_id" json:"route_id"`
	ServiceID            string `db:"service_id" json:"service_id"`
	Headsign             string `db:"trip_headsign" json:"headsign,omitzero"`
	DirectionID          *int   `db:"direction_id" json:"direction_id,omitempty"`
	BlockID              string `db:"block_id" json:"block_id,omitzero"`
	ShapeID              string `db:"shape_id" json:"shape_id,omitzero"`
	WheelchairAccessible *int   `db:"wheelchair_accessible" json:"wheelchair_accessible,omitempty"`
	DirectionName        string `db:"trip_direction_name" json:"direction_name,omitzero"`
	VehicleJourneyCode   string `db:"vehicle_journey_code" json:"vehicle_journey_code,omitzero"`
}

// StopTime represents a scheduled stop time for a trip
type StopTime struct {
	TripID            string   `db:"trip_id" json:"trip_id"`
	ArrivalTime       string   `db:"arrival_time" json:"arrival_time"`
	DepartureTime     string   `db:"departure_time" json:"departure_time"`
	StopID            string   `db:"stop_id" json:"stop_id"`
	StopSequence      *int     `db:"stop_sequence" json:"stop_sequence"`
	StopHeadsign      string   `db:"stop_headsign" json:"stop_headsign,omitzero"`
	PickupType        *int     `db:"pickup_type" json:"pickup_type,omitempty"`
	DropOffType       *int     `db:"drop_off_type" json:"drop_off_type,omitempty"`
	ShapeDistTraveled *float64 `db:"shape_dist_traveled" json:"shape_dist_traveled,omitempty"`
	Timepoint         *int     `db:"timepoint" json:"timepoint,omitempty"`
	DirectionName     string   `db:"stop_direction_name" json:"direction_name,omitzero"`
}

// Calendar represents service dates
type Calendar struct {
	ServiceID string `db:"service_id" json:"service_id"`
	Monday    *int   `db:"monday" json:"monday"`
	Tuesday   *int   `db:"tuesday" json:"tuesday"`
	Wednesday *int   `db:"wednesday" json:"wednesday"`
	Thursday  *int   `db:"thursday" json:"thursday"`
	Friday    *int   `db:"friday" json:"friday"`
	Saturday  *int   `db:"saturday" json:"saturday"`
	Sunday    *int   `db:"sunday" json:"sunday"`
	StartDate string `db:"start_date" json:"start_date"`
	EndDate   string `db:"end_date" json:"end_date"`
}

// CalendarDate represents exceptions to the calendar
type CalendarDate struct {
	ServiceID     string `db:"service_id" json:"service_id"`
	Date          string `db:"date" json:"date"`
	ExceptionType *int   `db:"exception_type" json:"exception_type"`
}

// ShapePoint is one point of a route shape
type ShapePoint struct {
	ShapeID      string   `db:"shape_id" json:"shape_id"`
	Latitude     *float64 `db:"shape_pt_lat" json:"latitude"`
	Longitude    *float64 `db:"shape_pt_lon" json:"longitude"`
	Sequence     *int     `db:"shape_pt_sequence" json:"sequence"`
	DistTraveled *float64 `db:"shape_dist_traveled" json:"dist_traveled,omitempty"`
}
