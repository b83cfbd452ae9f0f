package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	"github.com/angelmondragon/kwetupizza-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
)

const envHeader = "X-KwetuPizza-Env"

// Pinger is any dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and Redis answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		checks := map[string]Pinger{"database": database, "redis": cache}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]any{"dependency": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
