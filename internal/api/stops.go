package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/filter"
	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleStops handles the stops collection endpoint. One of filter[bbox],
// filter[code] or filter[parent_station] is required.
func (s *Server) handleStops(w http.ResponseWriter, r *http.Request) {
	options := filter.NewOptions(r.URL.Query())
	ctx := r.Context()

	box, hasBox, err := options.BoundingBox()
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var stops []*models.Stop
	switch {
	case hasBox:
		stops, err = s.store.GetStopsInBounds(ctx, box)
	case options.HasFilter("code"):
		for _, code := range options.GetFilterList("code") {
			var stop *models.Stop
			stop, err = s.store.GetStopByCode(ctx, code)
			if err != nil {
				break
			}
			if stop != nil {
				stops = append(stops, stop)
			}
		}
	case options.HasFilter("parent_station"):
		stops, err = s.store.GetStopsByStation(ctx, options.GetFilter("parent_station"))
	default:
		s.sendErrorResponse(w, http.StatusBadRequest, "one of filter[bbox], filter[code] or filter[parent_station] is required")
		return
	}
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	resources := make([]Resource, len(stops))
	for i, stop := range stops {
		resources[i] = stopToResource(stop)
	}

	s.sendResponse(w, Response{
		Data:  sparse(options, resources),
		Links: map[string]string{"self": "/stops"},
	})
}

// handleStop handles the stop detail endpoint
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	stop, err := s.store.GetStop(ctx, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if stop == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "Stop not found")
		return
	}

	options := filter.NewOptions(r.URL.Query())
	response := Response{
		Data:  sparse(options, []Resource{stopToResource(stop)})[0],
		Links: map[string]string{"self": "/stops/" + id},
	}

	if options.HasInclude("stop_times") {
		stopTimes, err := s.store.GetStopTimesByStop(ctx, stop.ID)
		if err != nil {
			s.sendStoreError(w, r, err)
			return
		}
		included := make([]Resource, len(stopTimes))
		for i, st := range stopTimes {
			included[i] = stopTimeToResource(st)
		}
		response.Included = sparse(options, included)
	}

	s.sendResponse(w, response)
}

// stopToResource converts a Stop model to a JSON:API resource
func stopToResource(stop *models.Stop) Resource {
	res := Resource{
		Type: "stop",
		ID:   stop.ID,
		Attributes: map[string]any{
			"code":                stop.Code,
			"name":                stop.Name,
			"latitude":            stop.Latitude,
			"longitude":           stop.Longitude,
			"wheelchair_boarding": stop.WheelchairBoarding,
			"location_type":       stop.LocationType,
			"platform_code":       stop.PlatformCode,
		},
		Links: map[string]string{
			"self": "/stops/" + stop.ID,
		},
	}
	if rel, ok := relatesTo("stop", stop.ParentStation); ok {
		res.Relationships = map[string]Relationship{"parent_station": rel}
	}
	return res
}
