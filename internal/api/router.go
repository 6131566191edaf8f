package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/projeval/internal/api/handlers"
	"github.com/wonny/projeval/pkg/logger"
)

// Pinger a dependency checked by /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions optional router features
type RouterOptions struct {
	// Health dependencies by name (e.g. "database", "redis")
	Health         map[string]Pinger
	MetricsEnabled bool
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(learningHandler *handlers.LearningHandler, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(opts.Health)).Methods("GET")

	// Prometheus
	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()

	// Learning endpoints
	learn := api.PathPrefix("/learning").Subrouter()
	learn.HandleFunc("/snapshots/latest", learningHandler.GetLatestSnapshot).Methods("GET")
	learn.HandleFunc("/snapshots", learningHandler.ListSnapshots).Methods("GET")
	learn.HandleFunc("/suggestions", learningHandler.ListSuggestions).Methods("GET")
	learn.HandleFunc("/proposals", learningHandler.ListProposals).Methods("GET")
	learn.HandleFunc("/matches", learningHandler.ListMatches).Methods("GET")
	learn.HandleFunc("/alerts", learningHandler.ListAlerts).Methods("GET")
	learn.HandleFunc("/runs", learningHandler.ListRuns).Methods("GET")
	learn.HandleFunc("/run", learningHandler.TriggerRun).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler pings each dependency; any failure → 503
func healthCheckHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"service": "projeval-api",
			"checks":  checks,
		})
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
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
