package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/filter"
	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleRoutes handles the routes collection endpoint
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	options := filter.NewOptions(r.URL.Query())
	ctx := r.Context()

	var (
		routes []*models.Route
		err    error
	)
	if options.HasFilter("short_name") {
		routes, err = s.store.GetRoutesByShortName(ctx, options.GetFilter("short_name"))
	} else {
		routes, err = s.store.GetAllRoutes(ctx)
	}
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	if options.HasFilter("agency") {
		agencies := options.GetFilterList("agency")
		routes = filter.Filter(routes, func(route *models.Route) bool {
			for _, id := range agencies {
				if route.AgencyID == id {
					return true
				}
			}
			return false
		})
	}

	if options.HasFilter("type") {
		types := options.GetFilterList("type")
		routes = filter.Filter(routes, func(route *models.Route) bool {
			for _, typeStr := range types {
				if typeVal, err := strconv.Atoi(typeStr); err == nil && route.Type != nil && *route.Type == typeVal {
					return true
				}
			}
			return false
		})
	}

	resources := make([]Resource, len(routes))
	for i, route := range routes {
		resources[i] = routeToResource(route)
	}

	s.sendResponse(w, Response{
		Data:  sparse(options, resources),
		Links: map[string]string{"self": "/routes"},
	})
}

// handleRoute handles the route detail endpoint
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	route, err := s.store.GetRoute(ctx, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if route == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "Route not found")
		return
	}

	options := filter.NewOptions(r.URL.Query())
	response := Response{
		Data:  sparse(options, []Resource{routeToResource(route)})[0],
		Links: map[string]string{"self": "/routes/" + id},
	}

	if options.HasInclude("trips") {
		trips, err := s.store.GetTripsByRoute(ctx, route.ID)
		if err != nil {
			s.sendStoreError(w, r, err)
			return
		}
		included := make([]Resource, len(trips))
		for i, trip := range trips {
			included[i] = tripToResource(trip)
		}
		response.Included = sparse(options, included)
	}

	s.sendResponse(w, response)
}

// routeToResource converts a Route model to a JSON:API resource
func routeToResource(route *models.Route) Resource {
	res := Resource{
		Type: "route",
		ID:   route.ID,
		Attributes: map[string]any{
			"short_name": route.ShortName,
			"long_name":  route.LongName,
			"type":       route.Type,
		},
		Links: map[string]string{
			"self": "/routes/" + route.ID,
		},
	}
	if rel, ok := relatesTo("agency", route.AgencyID); ok {
		res.Relationships = map[string]Relationship{"agency": rel}
	}
	return res
}
