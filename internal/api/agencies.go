package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/filter"
	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleAgencies handles the agencies collection endpoint
func (s *Server) handleAgencies(w http.ResponseWriter, r *http.Request) {
	options := filter.NewOptions(r.URL.Query())
	ctx := r.Context()

	var (
		agencies []*models.Agency
		err      error
	)
	switch {
	case options.HasFilter("noc"):
		var agency *models.Agency
		agency, err = s.store.GetAgencyByNOC(ctx, options.GetFilter("noc"))
		if agency != nil {
			agencies = append(agencies, agency)
		}
	case options.HasFilter("name"):
		agencies, err = s.store.GetAgenciesByName(ctx, options.GetFilter("name"))
	default:
		agencies, err = s.store.GetAllAgencies(ctx)
	}
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}

	resources := make([]Resource, len(agencies))
	for i, agency := range agencies {
		resources[i] = agencyToResource(agency)
	}

	s.sendResponse(w, Response{
		Data:  sparse(options, resources),
		Links: map[string]string{"self": "/agencies"},
	})
}

// handleAgency handles the agency detail endpoint
func (s *Server) handleAgency(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	agency, err := s.store.GetAgency(r.Context(), id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if agency == nil {
		s.sendErrorResponse(w, http.StatusNotFound, "Agency not found")
		return
	}

	options := filter.NewOptions(r.URL.Query())
	s.sendResponse(w, Response{
		Data:  sparse(options, []Resource{agencyToResource(agency)})[0],
		Links: map[string]string{"self": "/agencies/" + id},
	})
}

// agencyToResource converts an Agency model to a JSON:API resource
func agencyToResource(agency *models.Agency) Resource {
	return Resource{
		Type: "agency",
		ID:   agency.ID,
		Attributes: map[string]any{
			"name":     agency.Name,
			"url":      agency.URL,
			"timezone": agency.Timezone,
			"lang":     agency.Lang,
			"phone":    agency.Phone,
			"noc":      agency.NOC,
		},
		Links: map[string]string{
			"self": "/agencies/" + agency.ID,
		},
	}
}
