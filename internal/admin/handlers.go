package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/validation"
)

const (
	// DatabaseTimeout is the maximum duration for database operations
	DatabaseTimeout = 5 * time.Second
)

// Store is the read side the admin handlers need.
type Store interface {
	ListTeams(ctx context.Context) ([]models.TeamSummary, error)
	GetTeamByEmail(ctx context.Context, email string) (*models.Team, error)
}

// TeamPurger removes a team and everything it owns.
type TeamPurger interface {
	PurgeTeam(ctx context.Context, email string)
}

// Handlers holds dependencies for admin handlers
type Handlers struct {
	store  Store
	purger TeamPurger
}

// NewHandlers creates admin handlers with dependencies
func NewHandlers(store Store, purger TeamPurger) *Handlers {
	return &Handlers{store: store, purger: purger}
}

type listTeamsResponse struct {
	Teams []models.TeamSummary `json:"teams"`
}

// HandleListTeams returns every registered team.
func (h *Handlers) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	teams, err := h.store.ListTeams(ctx)
	if err != nil {
		log.Error("Failed to list teams", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list teams"})
		return
	}
	writeJSON(w, http.StatusOK, listTeamsResponse{Teams: teams})
}

// HandleDeleteTeam purges another team and all of its data.
func (h *Handlers) HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	raw, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid team email"})
		return
	}
	target := validation.NormalizeEmail(raw)
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid team email"})
		return
	}
	if self, _ := auth.GetTeamEmail(r.Context()); self == target {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Use /delete_account to delete your own team"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DatabaseTimeout)
	defer cancel()

	team, err := h.store.GetTeamByEmail(ctx, target)
	if err != nil {
		if errors.Is(err, db.ErrTeamNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Team not found"})
			return
		}
		log.Error("Failed to load team", "error", err, "target", target)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete team"})
		return
	}

	h.purger.PurgeTeam(r.Context(), team.Email)
	AuditLog(r.Context(), ActionTeamDelete, map[string]interface{}{
		"target_email": team.Email,
		"members":      len(team.Usernames),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Team deleted"})
}
