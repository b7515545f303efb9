package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/joeshaw/bods-gtfs/internal/metrics"
	"github.com/joeshaw/bods-gtfs/internal/store"
)

// Server represents the API server
type Server struct {
	store   *store.Store
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

// NewServer creates a new API server
func NewServer(store *store.Store, m *metrics.Metrics, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Router creates and returns the HTTP router
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/agencies", s.handleAgencies).Methods("GET")
	r.HandleFunc("/agencies/{id}", s.handleAgency).Methods("GET")
	r.HandleFunc("/routes", s.handleRoutes).Methods("GET")
	r.HandleFunc("/routes/{id}", s.handleRoute).Methods("GET")
	r.HandleFunc("/trips", s.handleTrips).Methods("GET")
	r.HandleFunc("/trips/{id}", s.handleTrip).Methods("GET")
	r.HandleFunc("/stops", s.handleStops).Methods("GET")
	r.HandleFunc("/stops/{id}", s.handleStop).Methods("GET")
	r.HandleFunc("/shapes/{id}", s.handleShape).Methods("GET")
	r.HandleFunc("/calendars/{id}", s.handleCalendar).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendErrorResponse(w, http.StatusNotFound, "No such endpoint")
	})

	return s.corsMiddleware(r)
}

// corsMiddleware adds CORS headers to all responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
