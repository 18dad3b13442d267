package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/validation"
)

// AccountStore is the subset of Store used by the account handlers.
type AccountStore interface {
	GetTeamByEmail(ctx context.Context, email string) (*models.Team, error)
	UpdateTeamPassword(ctx context.Context, email, passwordHash string) error
	AddTeamMember(ctx context.Context, email, username string) error
	RemoveTeamMember(ctx context.Context, email, username string) error
	DeleteTeam(ctx context.Context, email string) error
	DeleteTeamDocuments(ctx context.Context, ownerEmail string) (int64, error)
	ListOwnedDocumentIDs(ctx context.Context, ownerEmail string) ([]string, error)
	DeleteEvents(ctx context.Context, docIDs []string) (int64, error)
}

type changePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type addMemberRequest struct {
	NewMember string `json:"new_member"`
	Email     string `json:"email"`
}

type removeMemberRequest struct {
	Member string `json:"member"`
	Email  string `json:"email"`
}

type membersResponse struct {
	Members []string `json:"members"`
}

// emailMatches reports whether an optional payload email agrees with the
// authenticated team.
func emailMatches(payloadEmail, team string) bool {
	payloadEmail = validation.NormalizeEmail(payloadEmail)
	return payloadEmail == "" || payloadEmail == team
}

// HandleChangePassword replaces the team password after checking the
// current one.
func HandleChangePassword(store AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		var req changePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
		email := validation.NormalizeEmail(req.Email)
		if email == "" || req.CurrentPassword == "" || req.NewPassword == "" {
			respondError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		if email != team {
			respondError(w, http.StatusForbidden, "Email mismatch")
			return
		}

		existing, err := store.GetTeamByEmail(r.Context(), team)
		if err != nil {
			if errors.Is(err, db.ErrTeamNotFound) {
				respondError(w, http.StatusNotFound, "Account not found")
				return
			}
			log.Error("Failed to load team", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}
		if !auth.CheckPassword(existing.PasswordHash, req.CurrentPassword) {
			respondError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			log.Error("Failed to hash password", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}
		if err := store.UpdateTeamPassword(r.Context(), team, hash); err != nil {
			if errors.Is(err, db.ErrTeamNotFound) {
				respondError(w, http.StatusNotFound, "Account not found")
				return
			}
			log.Error("Failed to update password", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}

		log.Info("Password updated")
		respondMessage(w, http.StatusOK, "Password updated successfully")
	}
}

// HandleAddMember adds a username to the team.
func HandleAddMember(store AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		var req addMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
		if strings.TrimSpace(req.NewMember) == "" {
			respondError(w, http.StatusBadRequest, "Missing new member username")
			return
		}
		member, err := validation.NormalizeUsername(req.NewMember)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !emailMatches(req.Email, team) {
			respondError(w, http.StatusForbidden, "Email mismatch")
			return
		}

		existing, err := store.GetTeamByEmail(r.Context(), team)
		if err != nil {
			if errors.Is(err, db.ErrTeamNotFound) {
				respondError(w, http.StatusNotFound, "Account not found")
				return
			}
			log.Error("Failed to load team", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to add member")
			return
		}
		if len(existing.Usernames) >= validation.MaxMembers {
			respondError(w, http.StatusBadRequest, "Team member limit reached")
			return
		}

		if err := store.AddTeamMember(r.Context(), team, member); err != nil {
			switch {
			case errors.Is(err, db.ErrMemberExists):
				respondError(w, http.StatusConflict, "Member already exists")
			case errors.Is(err, db.ErrTeamNotFound):
				respondError(w, http.StatusNotFound, "Account not found")
			default:
				log.Error("Failed to add member", "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to add member")
			}
			return
		}

		log.Info("Member added", "member", member)
		respondMessage(w, http.StatusOK, "Member added successfully")
	}
}

// HandleTeamMembers lists the team's usernames.
func HandleTeamMembers(store AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		existing, err := store.GetTeamByEmail(r.Context(), team)
		if err != nil {
			if errors.Is(err, db.ErrTeamNotFound) {
				respondError(w, http.StatusNotFound, "Account not found")
				return
			}
			log.Error("Failed to fetch members", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to fetch members")
			return
		}

		members := existing.Usernames
		if members == nil {
			members = []string{}
		}
		respondJSON(w, http.StatusOK, membersResponse{Members: members})
	}
}

// HandleRemoveMember removes a username from the team. The last member
// cannot be removed.
func HandleRemoveMember(store AccountStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		var req removeMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
		member := strings.TrimSpace(req.Member)
		if member == "" {
			respondError(w, http.StatusBadRequest, "Missing member username")
			return
		}
		if !emailMatches(req.Email, team) {
			respondError(w, http.StatusForbidden, "Email mismatch")
			return
		}

		if err := store.RemoveTeamMember(r.Context(), team, member); err != nil {
			switch {
			case errors.Is(err, db.ErrTeamNotFound):
				respondError(w, http.StatusNotFound, "Account not found")
			case errors.Is(err, db.ErrMemberNotFound):
				respondError(w, http.StatusNotFound, "Member not found")
			case errors.Is(err, db.ErrLastMember):
				respondError(w, http.StatusBadRequest, "Cannot remove the last member")
			default:
				log.Error("Failed to remove member", "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to remove member")
			}
			return
		}

		log.Info("Member removed", "member", member)
		respondMessage(w, http.StatusOK, "Member removed successfully")
	}
}

// HandleDeleteAccount removes the team and everything it owns.
func HandleDeleteAccount(store AccountStore, archive ArchiveStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}
		purgeTeam(r.Context(), store, archive, team)
		respondMessage(w, http.StatusOK, "Account and associated data deleted")
	}
}

// purgeTeam deletes activity, documents, archives and finally the team row.
// Each step is best-effort so a partial failure still removes as much as
// possible; leftover activity is collected by the sweeper worker.
func purgeTeam(ctx context.Context, store AccountStore, archive ArchiveStore, team string) {
	log := logger.Ctx(ctx).With("purged_team", team)

	docIDs, err := store.ListOwnedDocumentIDs(ctx, team)
	if err != nil {
		log.Warn("Purge: failed to list documents", "error", err)
	}
	if len(docIDs) > 0 {
		if n, err := store.DeleteEvents(ctx, docIDs); err != nil {
			log.Warn("Purge: failed to delete activity", "error", err)
		} else {
			log.Info("Purge: activity removed", "count", n)
		}
	}

	if n, err := store.DeleteTeamDocuments(ctx, team); err != nil {
		log.Warn("Purge: failed to delete documents", "error", err)
	} else {
		log.Info("Purge: documents removed", "count", n)
	}

	if archive != nil {
		if n, err := archive.DeleteTeamArchives(ctx, team); err != nil {
			log.Warn("Purge: failed to delete archives", "error", err)
		} else {
			log.Info("Purge: archives removed", "count", n)
		}
	}

	if err := store.DeleteTeam(ctx, team); err != nil {
		log.Warn("Purge: failed to delete team", "error", err)
	}
}
