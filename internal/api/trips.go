package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/filter"
	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleTrips handles the trips collection endpoint. A national feed has
// millions of trips, so a route filter is required.
func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	options := filter.NewOptions(r.URL.Query())
	if !options.HasFilter("route") {
		s.sendErrorResponse(w, http.StatusBadRequest, "filter[route] is required")
		return
	}

	var trips []*models.Trip
	for _, routeID := range options.GetFilterList("route") {
		routeTrips, err := s.store.GetTripsByRoute(r.Context(), routeID)
		if err != nil {
			s.sendStoreError(w, r, err)
			return
		}
		trips = append(trips, routeTrips...)
	}

	resources := make([]Resource, len(trips))
	for i, trip := range trips {
		resources[i] = tripToResource(trip)
	}

	s.sendResponse(w, Response{
		Data:  sparse(options, resources),
		Links: map[string]string{"self": "/trips"},
	})
}

// handleTrip handles the trip detail endpoint
func (s *Server) handleTrip(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if trip == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "Trip not found")
		return
	}

	options := filter.NewOptions(r.URL.Query())
	response := Response{
		Data:  sparse(options, []Resource{tripToResource(trip)})[0],
		Links: map[string]string{"self": "/trips/" + id},
	}

	var included []Resource

	if options.HasInclude("route") {
		route, err := s.store.GetRoute(ctx, trip.RouteID)
		if err != nil {
			s.sendStoreError(w, r, err)
			return
		}
		if route != nil {
			included = append(included, routeToResource(route))
		}
	}

	if options.HasInclude("stop_times") {
		stopTimes, err := s.store.GetStopTimesByTrip(ctx, trip.ID)
		if err != nil {
			s.sendStoreError(w, r, err)
			return
		}
		for _, st := range stopTimes {
			included = append(included, stopTimeToResource(st))
		}
	}

	if len(included) > 0 {
		response.Included = sparse(options, included)
	}

	s.sendResponse(w, response)
}

// tripToResource converts a Trip model to a JSON:API resource
func tripToResource(trip *models.Trip) Resource {
	res := Resource{
		Type: "trip",
		ID:   trip.ID,
		Attributes: map[string]any{
			"headsign":              trip.Headsign,
			"direction_id":          trip.DirectionID,
			"direction_name":        trip.DirectionName,
			"block_id":              trip.BlockID,
			"wheelchair_accessible": trip.WheelchairAccessible,
			"vehicle_journey_code":  trip.VehicleJourneyCode,
		},
		Links: map[string]string{
			"self": "/trips/" + trip.ID,
		},
		Relationships: map[string]Relationship{},
	}
	if rel, ok := relatesTo("route", trip.RouteID); ok {
		res.Relationships["route"] = rel
	}
	// service ids may have no calendar row
	if rel, ok := relatesTo("calendar", trip.ServiceID); ok {
		rel.Links = map[string]string{"related": "/calendars/" + trip.ServiceID}
		res.Relationships["service"] = rel
	}
	if rel, ok := relatesTo("shape", trip.ShapeID); ok {
		rel.Links = map[string]string{"related": "/shapes/" + trip.ShapeID}
		res.Relationships["shape"] = rel
	}
	return res
}

// stopTimeToResource converts a StopTime model to a JSON:API resource.
// Stop times have no key of their own; the id is trip and sequence.
func stopTimeToResource(st *models.StopTime) Resource {
	seq := ""
	if st.StopSequence != nil {
		seq = strconv.Itoa(*st.StopSequence)
	}
	res := Resource{
		Type: "stop_time",
		ID:   st.TripID + ":" + seq,
		Attributes: map[string]any{
			"arrival_time":        st.ArrivalTime,
			"departure_time":      st.DepartureTime,
			"stop_sequence":       st.StopSequence,
			"stop_headsign":       st.StopHeadsign,
			"pickup_type":         st.PickupType,
			"drop_off_type":       st.DropOffType,
			"shape_dist_traveled": st.ShapeDistTraveled,
			"timepoint":           st.Timepoint,
		},
		Relationships: map[string]Relationship{},
	}
	if rel, ok := relatesTo("stop", st.StopID); ok {
		res.Relationships["stop"] = rel
	}
	if rel, ok := relatesTo("trip", st.TripID); ok {
		res.Relationships["trip"] = rel
	}
	return res
}
