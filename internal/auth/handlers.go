package auth

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/validation"
)

// maxAuthBodyBytes bounds signup/login/refresh request bodies.
const maxAuthBodyBytes = 64 * 1024

// TeamStore is the subset of the database used by the auth handlers.
type TeamStore interface {
	CreateTeam(ctx context.Context, email, passwordHash string, usernames []string) (*models.Team, error)
	GetTeamByEmail(ctx context.Context, email string) (*models.Team, error)
}

// SignupRequest is the JSON form of POST /signup.
type SignupRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Usernames []string `json:"usernames"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries issued tokens.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshRequest is the body of POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleSignup handles POST /signup. Accepts form fields (usernames[] repeated)
// or a JSON body.
func HandleSignup(store TeamStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Ctx(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
		req, err := decodeSignup(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		email := validation.NormalizeEmail(req.Email)
		usernames, usernamesErr := validation.NormalizeUsernames(req.Usernames)
		if email == "" || req.Password == "" || usernamesErr != nil {
			writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		if !validation.IsValidEmail(email) {
			writeError(w, http.StatusBadRequest, "Invalid email address")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error("Failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to register team")
			return
		}

		team, err := store.CreateTeam(ctx, email, passwordHash, usernames)
		if err != nil {
			if errors.Is(err, db.ErrTeamExists) {
				writeError(w, http.StatusConflict, "Team with this email already exists")
				return
			}
			log.Error("Failed to create team", "error", err, "email", email)
			writeError(w, http.StatusInternalServerError, "Failed to register team")
			return
		}

		log.Info("Team registered", "team_id", team.ID, "email", email, "members", len(usernames))
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Team registered successfully"})
	}
}

func decodeSignup(r *http.Request) (*SignupRequest, error) {
	var req SignupRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAuthBodyBytes); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}

	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
	req.Usernames = append(req.Usernames, r.PostForm["usernames[]"]...)
	req.Usernames = append(req.Usernames, r.PostForm["usernames"]...)
	return &req, nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// HandleLogin handles POST /login. Unknown teams, unknown members, and wrong
// passwords all get the same response.
func HandleLogin(store TeamStore, issuer *TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.Ctx(ctx)

		var req LoginRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		email := validation.NormalizeEmail(req.Email)
		username := strings.TrimSpace(req.Username)

		team, err := store.GetTeamByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, db.ErrTeamNotFound) {
				log.Warn("Failed login attempt", "email", email, "reason", "unknown team")
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			log.Error("Failed to load team", "error", err, "email", email)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		if !team.HasMember(username) || !CheckPassword(team.PasswordHash, req.Password) {
			log.Warn("Failed login attempt", "email", email)
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		access, err := issuer.IssueAccess(team.Email)
		if err != nil {
			log.Error("Failed to issue access token", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		refresh, err := issuer.IssueRefresh(team.Email)
		if err != nil {
			log.Error("Failed to issue refresh token", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		log.Info("Login successful", "email", team.Email, "username", username)
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: access, RefreshToken: refresh})
	}
}

// HandleRefresh handles POST /refresh, exchanging a refresh token for a new
// access token.
func HandleRefresh(issuer *TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())

		var req RefreshRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "Missing refresh token")
			return
		}

		teamEmail, err := issuer.Verify(req.RefreshToken, TokenTypeRefresh)
		if err != nil {
			if errors.Is(err, ErrWrongTokenType) {
				writeError(w, http.StatusUnauthorized, "Invalid token type")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}

		access, err := issuer.IssueAccess(teamEmail)
		if err != nil {
			log.Error("Failed to issue access token", "error", err)
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: access})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
