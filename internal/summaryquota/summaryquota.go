// Package summaryquota tracks how many LLM-backed summaries each team has
// requested in the current calendar month.
package summaryquota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
)

// Quota represents a team's summary quota status for a given month.
type Quota struct {
	TeamEmail     string
	ComputeCount  int
	QuotaMonth    string // "2026-02"
	LastComputeAt *time.Time
	CreatedAt     time.Time
}

// MonthOf returns the month string in "YYYY-MM" format (UTC).
func MonthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// GetOrCreateForMonth retrieves or creates a quota record for a team,
// atomically resetting the count if the stored month is stale.
func GetOrCreateForMonth(ctx context.Context, conn *sql.DB, team, month string) (*Quota, error) {
	query := `
		INSERT INTO summary_quota (team_email, quota_month)
		VALUES ($1, $2)
		ON CONFLICT (team_email) DO UPDATE SET
			compute_count = CASE
				WHEN summary_quota.quota_month = $2
				THEN summary_quota.compute_count ELSE 0 END,
			quota_month = $2
		RETURNING team_email, compute_count, quota_month, last_compute_at, created_at
	`

	var q Quota
	err := conn.QueryRowContext(ctx, query, team, month).Scan(
		&q.TeamEmail,
		&q.ComputeCount,
		&q.QuotaMonth,
		&q.LastComputeAt,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create quota: %w", err)
	}
	return &q, nil
}

// IncrementForMonth bumps the compute count for a team. If the stored month
// is stale, it atomically resets the count to 1 and updates the month.
// Errors if no row exists for this team.
func IncrementForMonth(ctx context.Context, conn *sql.DB, team, month string) error {
	query := `
		UPDATE summary_quota
		SET compute_count = CASE
				WHEN quota_month = $2 THEN compute_count + 1
				ELSE 1 END,
			quota_month = $2,
			last_compute_at = NOW()
		WHERE team_email = $1
	`

	result, err := conn.ExecContext(ctx, query, team, month)
	if err != nil {
		return fmt.Errorf("failed to increment quota: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("no quota record found for team %s", team)
	}
	return nil
}

// GetCountForMonth returns the compute count for month (0 if row missing or stale).
func GetCountForMonth(ctx context.Context, conn *sql.DB, team, month string) (int, error) {
	query := `
		SELECT compute_count FROM summary_quota
		WHERE team_email = $1 AND quota_month = $2
	`

	var count int
	err := conn.QueryRowContext(ctx, query, team, month).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get quota count: %w", err)
	}
	return count, nil
}

// Limiter enforces a monthly summary limit per team.
type Limiter struct {
	conn  *sql.DB
	limit int
	clock quartz.Clock
}

// NewLimiter returns a Limiter allowing limit summaries per team per month.
func NewLimiter(conn *sql.DB, limit int, clock quartz.Clock) *Limiter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Limiter{conn: conn, limit: limit, clock: clock}
}

// Allow reports whether team may request another summary this month.
func (l *Limiter) Allow(ctx context.Context, team string) (bool, error) {
	q, err := GetOrCreateForMonth(ctx, l.conn, team, MonthOf(l.clock.Now()))
	if err != nil {
		return false, err
	}
	return q.ComputeCount < l.limit, nil
}

// Record counts one summary against team's quota.
func (l *Limiter) Record(ctx context.Context, team string) error {
	return IncrementForMonth(ctx, l.conn, team, MonthOf(l.clock.Now()))
}
