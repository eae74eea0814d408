package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rwerner/sourcing-radar/internal/api/handlers"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Candidates *handlers.CandidateHandler
	Matches    *handlers.MatchHandler
	Convert    *handlers.ConvertHandler
	Settings   *handlers.SettingsHandler
	Runs       *handlers.RunHandler
	Status     *handlers.StatusHandler
	Events     *Hub
}

// NewRouter creates and configures the HTTP router.
// Routing setup lives in this function only.
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Candidate endpoints
	api.HandleFunc("/candidates", h.Candidates.List).Methods("GET")
	api.HandleFunc("/candidates/{id:[0-9]+}", h.Candidates.Get).Methods("GET")
	api.HandleFunc("/candidates/{id:[0-9]+}/discard", h.Candidates.Discard).Methods("POST")
	api.HandleFunc("/candidates/{id:[0-9]+}/convert/preview", h.Convert.Preview).Methods("POST")
	api.HandleFunc("/candidates/{id:[0-9]+}/convert", h.Convert.Convert).Methods("POST")

	// Match overrides
	api.HandleFunc("/matches/{id:[0-9]+}", h.Matches.Patch).Methods("PATCH")

	// Settings
	api.HandleFunc("/settings", h.Settings.List).Methods("GET")
	api.HandleFunc("/settings/{key}", h.Settings.Get).Methods("GET")
	api.HandleFunc("/settings/{key}", h.Settings.Put).Methods("PUT")

	// Runs and agents
	api.HandleFunc("/runs", h.Runs.List).Methods("GET")
	api.HandleFunc("/runs/trigger", h.Runs.Trigger).Methods("POST")
	api.HandleFunc("/agents", h.Runs.Agents).Methods("GET")

	// Operator status
	api.HandleFunc("/status", h.Status.Status).Methods("GET")

	// Websocket event stream
	api.HandleFunc("/events", h.Events.Handle).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "sourcing-radar-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
