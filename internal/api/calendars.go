package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/filter"
	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleCalendar handles the calendar detail endpoint. A service may exist
// only in calendar_dates, in which case the weekly pattern is null.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	cal, err := s.store.GetCalendar(ctx, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	dates, err := s.store.GetCalendarDates(ctx, id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if cal == nil && len(dates) == 0 {
		s.sendErrorResponse(w, http.StatusNotFound, "Calendar not found")
		return
	}

	options := filter.NewOptions(r.URL.Query())
	response := Response{
		Data:  sparse(options, []Resource{calendarToResource(id, cal, len(dates))})[0],
		Links: map[string]string{"self": "/calendars/" + id},
	}

	if options.HasInclude("calendar_dates") {
		included := make([]Resource, len(dates))
		for i, d := range dates {
			included[i] = calendarDateToResource(d)
		}
		response.Included = sparse(options, included)
	}

	s.sendResponse(w, response)
}

func calendarToResource(id string, cal *models.Calendar, exceptions int) Resource {
	attrs := map[string]any{"weekly": nil, "exceptions": exceptions}
	if cal != nil {
		attrs["weekly"] = map[string]any{
			"monday":    cal.Monday,
			"tuesday":   cal.Tuesday,
			"wednesday": cal.Wednesday,
			"thursday":  cal.Thursday,
			"friday":    cal.Friday,
			"saturday":  cal.Saturday,
			"sunday":    cal.Sunday,
		}
		attrs["start_date"] = cal.StartDate
		attrs["end_date"] = cal.EndDate
	}
	return Resource{
		Type:       "calendar",
		ID:         id,
		Attributes: attrs,
		Links: map[string]string{
			"self": "/calendars/" + id,
		},
	}
}

func calendarDateToResource(d *models.CalendarDate) Resource {
	return Resource{
		Type: "calendar_date",
		ID:   d.ServiceID + ":" + d.Date,
		Attributes: map[string]any{
			"date":           d.Date,
			"exception_type": d.ExceptionType,
		},
		Relationships: map[string]Relationship{
			"service": {Data: ResourceIdentifier{Type: "calendar", ID: d.ServiceID}},
		},
	}
}
