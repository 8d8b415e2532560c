package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/scheduler"
	"github.com/siftlabs/sift/pkg/database"
	"github.com/siftlabs/sift/pkg/logger"
	"github.com/siftlabs/sift/pkg/redis"
)

// StatusProvider exposes the most recent cycle summary.
type StatusProvider interface {
	LastOutcome() *contracts.CycleOutcome
}

// MetricsReader exposes accumulated pipeline metrics.
type MetricsReader interface {
	All(ctx context.Context) (map[string]string, error)
}

// NewRouter wires the operational endpoints.
func NewRouter(
	db *database.DB,
	cache *redis.Client,
	status StatusProvider,
	metrics MetricsReader,
	sched *scheduler.Scheduler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler(db, cache)).Methods("GET")
	r.HandleFunc("/status", statusHandler(status, metrics, sched, log)).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthHandler(db *database.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"service": "ok"}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				healthy = false
			} else {
				checks["postgres"] = "ok"
			}
		}

		if cache != nil && cache.Enabled() {
			if err := cache.Redis().Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		} else {
			checks["redis"] = "disabled"
		}

		status := "ok"
		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}

func statusHandler(status StatusProvider, metrics MetricsReader, sched *scheduler.Scheduler, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]interface{}{}

		if status != nil {
			out["last_cycle"] = status.LastOutcome()
		}

		if metrics != nil {
			all, err := metrics.All(r.Context())
			if err != nil {
				log.WithError(err).Warn("Metrics read failed")
			} else {
				out["metrics"] = all
			}
		}

		if sched != nil {
			out["jobs"] = sched.GetJobStats()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

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
