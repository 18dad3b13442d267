package testutil

import (
	"testing"
	"time"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/models"
)

// TestJWTSecret signs tokens in integration tests.
const TestJWTSecret = "integration-secret-0123456789abcdef"

// NewTokenIssuer returns an issuer with production lifetimes and a fixed secret.
func NewTokenIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(TestJWTSecret, 2*time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	return issuer
}

// CreateTestTeam creates a team with a bcrypt-hashed password.
func CreateTestTeam(t *testing.T, env *TestEnvironment, email, password string, usernames ...string) *models.Team {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	team, err := env.DB.CreateTeam(env.Ctx, email, hash, usernames)
	if err != nil {
		t.Fatalf("failed to create test team: %v", err)
	}
	return team
}

// CreateTestDocument creates a document owned by ownerEmail.
func CreateTestDocument(t *testing.T, env *TestEnvironment, ownerEmail, title, content string) *models.Document {
	t.Helper()

	doc, err := env.DB.CreateDocument(env.Ctx, ownerEmail, title, content)
	if err != nil {
		t.Fatalf("failed to create test document: %v", err)
	}
	return doc
}

// CreateTestActivity appends one activity record.
func CreateTestActivity(t *testing.T, env *TestEnvironment, docID, user string, at time.Time, words int) {
	t.Helper()

	err := env.DB.AppendActivity(env.Ctx, models.ActivityRecord{
		DocID:      docID,
		UserEmail:  user,
		Action:     "update",
		OccurredAt: at,
		WordsAdded: words,
	})
	if err != nil {
		t.Fatalf("failed to create test activity: %v", err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, env *TestEnvironment, table string) int {
	t.Helper()

	var n int
	if err := env.DB.QueryRow(env.Ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
