package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

// AnalyticsService computes and resets team activity analytics.
// *analytics.Service satisfies it.
type AnalyticsService interface {
	Compute(ctx context.Context, teamEmail string) (*analytics.Payload, error)
	Reset(ctx context.Context, teamEmail string) (int64, error)
}

// resetResponse is returned by POST /analytics/reset.
type resetResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandleGetAnalytics returns the team's activity analytics. A team with no
// documents or no recorded activity gets 204 with no body.
func HandleGetAnalytics(svc AnalyticsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		payload, err := svc.Compute(r.Context(), team)
		if err != nil {
			if errors.Is(err, analytics.ErrNoContent) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			log.Error("Failed to compute analytics", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to compute analytics")
			return
		}
		respondJSON(w, http.StatusOK, payload)
	}
}

// HandleResetAnalytics deletes all activity for the team's documents.
func HandleResetAnalytics(svc AnalyticsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		deleted, err := svc.Reset(r.Context(), team)
		if err != nil {
			log.Error("Failed to reset analytics", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to reset analytics")
			return
		}

		log.Info("Analytics reset", "deleted", deleted)
		respondJSON(w, http.StatusOK, resetResponse{Deleted: deleted})
	}
}
