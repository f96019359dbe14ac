package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/sandroescobar/lovemenow-sub001/api/responses"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus the state of the primary dependencies.
func Health(db, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"api": "ok"}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				status["db"] = "down"
				healthy = false
				logg.Warn(ctx, "health check: db unreachable")
			} else {
				status["db"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				status["redis"] = "down"
				healthy = false
				logg.Warn(ctx, "health check: redis unreachable")
			} else {
				status["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
