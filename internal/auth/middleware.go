package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

type contextKey string

const teamEmailContextKey contextKey = "teamEmail"

// WithTeamEmail returns a context carrying the authenticated team email.
func WithTeamEmail(ctx context.Context, teamEmail string) context.Context {
	return context.WithValue(ctx, teamEmailContextKey, teamEmail)
}

// GetTeamEmail extracts the authenticated team email from request context
func GetTeamEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(teamEmailContextKey).(string)
	return email, ok && email != ""
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequireAuth returns middleware that accepts only valid access tokens.
// The token subject is stored in context and attached to request logs.
func RequireAuth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				writeError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			teamEmail, err := issuer.Verify(raw, TokenTypeAccess)
			if err != nil {
				if errors.Is(err, ErrWrongTokenType) {
					writeError(w, http.StatusUnauthorized, "Invalid token type")
					return
				}
				logger.Ctx(r.Context()).Debug("Rejected access token", "error", err)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := WithTeamEmail(r.Context(), teamEmail)
			ctx = logger.WithTeam(ctx, teamEmail)
			logger.SetRequestTeam(ctx, teamEmail)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
