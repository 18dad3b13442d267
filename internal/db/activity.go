package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/models"
)

// AppendActivity records one document edit.
func (db *DB) AppendActivity(ctx context.Context, rec models.ActivityRecord) error {
	ctx, span := tracer.Start(ctx, "db.append_activity",
		trace.WithAttributes(attribute.String("document.id", rec.DocID)))
	defer span.End()

	query := `
		INSERT INTO activity_logs (id, doc_id, user_email, action, occurred_at, words_added)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.conn.ExecContext(ctx, query,
		uuid.New(), rec.DocID, rec.UserEmail, rec.Action, rec.OccurredAt.UTC(), rec.WordsAdded)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// FetchEvents returns every activity event on the given documents.
// Rows written without a timestamp come back with a missing RawTimestamp,
// and NULL word counts come back as 0.
func (db *DB) FetchEvents(ctx context.Context, docIDs []string) ([]analytics.ActivityEvent, error) {
	ctx, span := tracer.Start(ctx, "db.fetch_activity_events",
		trace.WithAttributes(attribute.Int("documents.count", len(docIDs))))
	defer span.End()

	if len(docIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id::text, doc_id, user_email, action, occurred_at, words_added
		FROM activity_logs
		WHERE doc_id = ANY($1::text[])
	`

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(docIDs))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	defer rows.Close()

	var events []analytics.ActivityEvent
	for rows.Next() {
		var (
			ev         analytics.ActivityEvent
			userEmail  sql.NullString
			occurredAt sql.NullTime
			words      sql.NullInt64
		)
		if err := rows.Scan(&ev.ID, &ev.DocID, &userEmail, &ev.Action, &occurredAt, &words); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		ev.UserEmail = userEmail.String
		if occurredAt.Valid {
			ev.Timestamp = analytics.TimestampOf(occurredAt.Time)
		}
		if words.Valid && words.Int64 > 0 {
			ev.WordsAdded = int(words.Int64)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	return events, nil
}

// DeleteEvents removes every activity event on the given documents and
// returns how many were deleted.
func (db *DB) DeleteEvents(ctx context.Context, docIDs []string) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.delete_activity_events",
		trace.WithAttributes(attribute.Int("documents.count", len(docIDs))))
	defer span.End()

	if len(docIDs) == 0 {
		return 0, nil
	}

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE doc_id = ANY($1::text[])`, pq.Array(docIDs))
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete activity: %w", err)
	}
	n, _ := result.RowsAffected()
	span.SetAttributes(attribute.Int64("events.deleted", n))
	return n, nil
}

// CountOrphanedActivity returns how many activity events reference a
// document that no longer exists.
func (db *DB) CountOrphanedActivity(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.count_orphaned_activity")
	defer span.End()

	var n int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity_logs a
		WHERE NOT EXISTS (SELECT 1 FROM documents d WHERE d.id::text = a.doc_id)
	`).Scan(&n)
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to count orphaned activity: %w", err)
	}
	return n, nil
}

// DeleteOrphanedActivity removes up to limit activity events whose document
// is gone. Account and document deletion purge logs best-effort, so a failed
// purge leaves rows behind for this sweep.
func (db *DB) DeleteOrphanedActivity(ctx context.Context, limit int) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.delete_orphaned_activity",
		trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	result, err := db.conn.ExecContext(ctx, `
		DELETE FROM activity_logs WHERE id IN (
			SELECT a.id FROM activity_logs a
			WHERE NOT EXISTS (SELECT 1 FROM documents d WHERE d.id::text = a.doc_id)
			LIMIT $1
		)
	`, limit)
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete orphaned activity: %w", err)
	}
	n, _ := result.RowsAffected()
	span.SetAttributes(attribute.Int64("events.deleted", n))
	return n, nil
}

var (
	_ analytics.DocumentDirectory = (*DB)(nil)
	_ analytics.ActivityLogStore  = (*DB)(nil)
)
