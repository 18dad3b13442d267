package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/teamdocs/internal/models"
)

// CreateDocument inserts a new document owned by the team and returns it.
func (db *DB) CreateDocument(ctx context.Context, ownerEmail, title, content string) (*models.Document, error) {
	ctx, span := tracer.Start(ctx, "db.create_document",
		trace.WithAttributes(attribute.String("team.email", ownerEmail)))
	defer span.End()

	query := `
		INSERT INTO documents (id, title, content, owner_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, title, content, owner_email, created_at, updated_at
	`

	doc, err := scanDocument(db.conn.QueryRowContext(ctx, query, uuid.New(), title, content, ownerEmail))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	span.SetAttributes(attribute.String("document.id", doc.ID))
	return doc, nil
}

// ListDocuments returns the team's documents, most recently updated first.
func (db *DB) ListDocuments(ctx context.Context, ownerEmail string) ([]models.DocumentSummary, error) {
	ctx, span := tracer.Start(ctx, "db.list_documents",
		trace.WithAttributes(attribute.String("team.email", ownerEmail)))
	defer span.End()

	query := `SELECT id, title, updated_at FROM documents WHERE owner_email = $1 ORDER BY updated_at DESC, id`

	rows, err := db.conn.QueryContext(ctx, query, ownerEmail)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.DocumentSummary{}
	for rows.Next() {
		var d models.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	return docs, nil
}

// GetDocument retrieves a document the team owns.
// Returns ErrDocumentNotFound for documents owned by other teams.
func (db *DB) GetDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) (*models.Document, error) {
	ctx, span := tracer.Start(ctx, "db.get_document",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	query := `
		SELECT id, title, content, owner_email, created_at, updated_at
		FROM documents WHERE id = $1 AND owner_email = $2
	`

	doc, err := scanDocument(db.conn.QueryRowContext(ctx, query, docID, ownerEmail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// UpdateDocumentContent replaces a document's content and returns the
// content it had before, so the caller can compute the edit delta.
func (db *DB) UpdateDocumentContent(ctx context.Context, ownerEmail string, docID uuid.UUID, content string) (string, error) {
	ctx, span := tracer.Start(ctx, "db.update_document_content",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE id = $1 AND owner_email = $2 FOR UPDATE`,
		docID, ownerEmail).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDocumentNotFound
		}
		recordSpanError(span, err)
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET content = $3, updated_at = NOW() WHERE id = $1 AND owner_email = $2`,
		docID, ownerEmail, content); err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("failed to update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("failed to commit document update: %w", err)
	}
	return previous, nil
}

// DeleteDocument deletes one of the team's documents.
// Returns ErrDocumentNotFound when nothing was deleted.
func (db *DB) DeleteDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "db.delete_document",
		trace.WithAttributes(attribute.String("document.id", docID.String())))
	defer span.End()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND owner_email = $2`, docID, ownerEmail)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// DeleteTeamDocuments deletes every document the team owns.
func (db *DB) DeleteTeamDocuments(ctx context.Context, ownerEmail string) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.delete_team_documents",
		trace.WithAttributes(attribute.String("team.email", ownerEmail)))
	defer span.End()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE owner_email = $1`, ownerEmail)
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete team documents: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// ListOwnedDocumentIDs returns the ids of every document the team owns.
func (db *DB) ListOwnedDocumentIDs(ctx context.Context, ownerEmail string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "db.list_owned_document_ids",
		trace.WithAttributes(attribute.String("team.email", ownerEmail)))
	defer span.End()

	rows, err := db.conn.QueryContext(ctx, `SELECT id::text FROM documents WHERE owner_email = $1`, ownerEmail)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document ids: %w", err)
	}
	return ids, nil
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerEmail, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
