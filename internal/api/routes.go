package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes. metricsHandler may be nil.
func SetupRoutes(handler *Handler, metricsHandler http.Handler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog(logging.OrNop(logger)))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Brokerage proxy routes
	api.HandleFunc("/alpaca/account", handler.GetAccount).Methods("GET")
	api.HandleFunc("/alpaca/positions", handler.GetPositions).Methods("GET")

	// Commentary
	api.HandleFunc("/openai", handler.CreateComment).Methods("POST")

	// Bot status routes
	api.HandleFunc("/bot/status", handler.GetBotStatus).Methods("GET")
	api.HandleFunc("/bot/history", handler.GetBotHistory).Methods("GET")

	api.HandleFunc("/price", handler.GetPrice).Methods("GET")
	api.HandleFunc("/dashboard", handler.GetDashboard).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
