package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/joeshaw/bods-gtfs/internal/filter"
)

// Resource represents a JSON:API resource object
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
	Links         map[string]string       `json:"links,omitempty"`
}

// Relationship represents a JSON:API relationship object
type Relationship struct {
	Data  any               `json:"data,omitempty"`
	Links map[string]string `json:"links,omitempty"`
}

// ResourceIdentifier represents a JSON:API resource identifier object
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Response represents a JSON:API response document
type Response struct {
	Data     any               `json:"data"`
	Included []Resource        `json:"included,omitempty"`
	Links    map[string]string `json:"links,omitempty"`
	Meta     map[string]any    `json:"meta,omitempty"`
}

// ErrorResponse represents a JSON:API error response
type ErrorResponse struct {
	Errors []Error `json:"errors"`
}

// Error represents a JSON:API error object
type Error struct {
	Status string `json:"status,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// relatesTo builds a to-one relationship, or nothing for an empty id
func relatesTo(typ, id string) (Relationship, bool) {
	if id == "" {
		return Relationship{}, false
	}
	return Relationship{Data: ResourceIdentifier{Type: typ, ID: id}}, true
}

// sparse drops the attributes not requested via fields[type]
func sparse(options *filter.Options, resources []Resource) []Resource {
	for _, res := range resources {
		for name := range res.Attributes {
			if !options.ShouldIncludeField(res.Type, name) {
				delete(res.Attributes, name)
			}
		}
	}
	return resources
}

// writeDocument encodes doc with the JSON:API media type. The status line is
// only written once encoding has succeeded.
func (s *Server) writeDocument(w http.ResponseWriter, status int, doc any) {
	body, err := json.Marshal(doc)
	if err != nil {
		s.logger.WithError(err).WithField("status", status).Error("Failed to encode document")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	w.Write(body)
}

// sendResponse writes a data document. Collections carry their size in
// meta.count.
func (s *Server) sendResponse(w http.ResponseWriter, response Response) {
	if list, ok := response.Data.([]Resource); ok {
		if response.Meta == nil {
			response.Meta = map[string]any{}
		}
		response.Meta["count"] = len(list)
	}
	s.writeDocument(w, http.StatusOK, response)
}

// sendErrorResponse writes a single-error document
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeDocument(w, statusCode, ErrorResponse{
		Errors: []Error{{
			Status: strconv.Itoa(statusCode),
			Title:  http.StatusText(statusCode),
			Detail: message,
		}},
	})
}

// sendStoreError logs a failed query and answers 500
func (s *Server) sendStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithField("path", r.URL.Path).Error("Query failed")
	s.sendErrorResponse(w, http.StatusInternalServerError, "Query failed")
}
