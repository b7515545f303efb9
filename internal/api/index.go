package api

import (
	"net/http"
	"time"
)

// handleIndex handles the index route
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Data: map[string]any{
			"version": "1.0.0",
			"name":    "BODS GTFS API",
			"time":    time.Now().Format(time.RFC3339),
		},
		Links: map[string]string{
			"agencies":  "/agencies",
			"routes":    "/routes",
			"trips":     "/trips",
			"stops":     "/stops",
			"shapes":    "/shapes/{id}",
			"calendars": "/calendars/{id}",
			"metrics":   "/metrics",
		},
	}

	s.sendResponse(w, response)
}
