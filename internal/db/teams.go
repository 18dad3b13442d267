package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/teamdocs/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// CreateTeam inserts a new team with its initial members.
// Returns ErrTeamExists if the email is already registered.
func (db *DB) CreateTeam(ctx context.Context, email, passwordHash string, usernames []string) (*models.Team, error) {
	ctx, span := tracer.Start(ctx, "db.create_team",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	query := `
		INSERT INTO teams (email, password_hash, usernames)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, usernames, created_at, updated_at
	`

	team, err := scanTeam(db.conn.QueryRowContext(ctx, query, email, passwordHash, pq.Array(usernames)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrTeamExists
		}
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

// GetTeamByEmail retrieves a team by its login email.
func (db *DB) GetTeamByEmail(ctx context.Context, email string) (*models.Team, error) {
	ctx, span := tracer.Start(ctx, "db.get_team_by_email",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	query := `SELECT id, email, password_hash, usernames, created_at, updated_at FROM teams WHERE email = $1`

	team, err := scanTeam(db.conn.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// UpdateTeamPassword replaces the team's password hash.
func (db *DB) UpdateTeamPassword(ctx context.Context, email, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "db.update_team_password",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	query := `UPDATE teams SET password_hash = $2, updated_at = NOW() WHERE email = $1`
	result, err := db.conn.ExecContext(ctx, query, email, passwordHash)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTeamNotFound
	}
	return nil
}

// AddTeamMember appends a member name to the team.
// Returns ErrMemberExists if the name is already present.
func (db *DB) AddTeamMember(ctx context.Context, email, username string) error {
	ctx, span := tracer.Start(ctx, "db.add_team_member",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	return db.mutateMembers(ctx, span, email, func(members []string) ([]string, error) {
		for _, m := range members {
			if m == username {
				return nil, ErrMemberExists
			}
		}
		return append(members, username), nil
	})
}

// RemoveTeamMember removes a member name from the team.
// A team always keeps at least one member.
func (db *DB) RemoveTeamMember(ctx context.Context, email, username string) error {
	ctx, span := tracer.Start(ctx, "db.remove_team_member",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	return db.mutateMembers(ctx, span, email, func(members []string) ([]string, error) {
		kept := make([]string, 0, len(members))
		found := false
		for _, m := range members {
			if m == username {
				found = true
				continue
			}
			kept = append(kept, m)
		}
		if !found {
			return nil, ErrMemberNotFound
		}
		if len(members) <= 1 {
			return nil, ErrLastMember
		}
		return kept, nil
	})
}

// mutateMembers reads the member list under a row lock, applies fn and
// writes the result back in the same transaction.
func (db *DB) mutateMembers(ctx context.Context, span trace.Span, email string, fn func([]string) ([]string, error)) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var members []string
	err = tx.QueryRowContext(ctx, `SELECT usernames FROM teams WHERE email = $1 FOR UPDATE`, email).
		Scan(pq.Array(&members))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		recordSpanError(span, err)
		return fmt.Errorf("failed to read members: %w", err)
	}

	updated, err := fn(members)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE teams SET usernames = $2, updated_at = NOW() WHERE email = $1`,
		email, pq.Array(updated)); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to update members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to commit members: %w", err)
	}
	return nil
}

// DeleteTeam removes the team row. Documents and activity are purged by the
// caller beforehand.
func (db *DB) DeleteTeam(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "db.delete_team",
		trace.WithAttributes(attribute.String("team.email", email)))
	defer span.End()

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM teams WHERE email = $1`, email); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// ListTeams returns every team with its document count, oldest first.
func (db *DB) ListTeams(ctx context.Context) ([]models.TeamSummary, error) {
	ctx, span := tracer.Start(ctx, "db.list_teams")
	defer span.End()

	query := `
		SELECT t.email, t.usernames, t.created_at, COUNT(d.id)
		FROM teams t
		LEFT JOIN documents d ON d.owner_email = t.email
		GROUP BY t.id
		ORDER BY t.created_at, t.email
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []models.TeamSummary{}
	for rows.Next() {
		var t models.TeamSummary
		if err := rows.Scan(&t.Email, pq.Array(&t.Members), &t.CreatedAt, &t.Documents); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		if t.Members == nil {
			t.Members = []string{}
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	span.SetAttributes(attribute.Int("teams.count", len(teams)))
	return teams, nil
}

func scanTeam(row *sql.Row) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID,
		&team.Email,
		&team.PasswordHash,
		pq.Array(&team.Usernames),
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if team.Usernames == nil {
		team.Usernames = []string{}
	}
	return &team, nil
}
