package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/validation"
)

// actionUpdate is the activity action recorded for content edits.
const actionUpdate = "update"

// DocumentStore is the subset of Store used by the document handlers.
type DocumentStore interface {
	CreateDocument(ctx context.Context, ownerEmail, title, content string) (*models.Document, error)
	ListDocuments(ctx context.Context, ownerEmail string) ([]models.DocumentSummary, error)
	GetDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) (*models.Document, error)
	UpdateDocumentContent(ctx context.Context, ownerEmail string, docID uuid.UUID, content string) (string, error)
	DeleteDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) error
	AppendActivity(ctx context.Context, rec models.ActivityRecord) error
	DeleteEvents(ctx context.Context, docIDs []string) (int64, error)
}

// createDocumentResponse is returned by POST /documents.
type createDocumentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// updateDocumentRequest is the JSON body of POST /documents/{id}.
// Content is a pointer so an absent key can be told apart from "".
type updateDocumentRequest struct {
	Content  *string `json:"content"`
	Username string  `json:"username"`
}

// teamFromContext returns the authenticated team or writes a 401.
func teamFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	team, ok := auth.GetTeamEmail(r.Context())
	if !ok || team == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return team, true
}

// documentIDParam parses the {id} URL parameter or writes a 400.
func documentIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := validation.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

// HandleListDocuments lists the team's documents, most recently edited first.
func HandleListDocuments(store DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		docs, err := store.ListDocuments(r.Context(), team)
		if err != nil {
			log.Error("Failed to list documents", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to list documents")
			return
		}
		if docs == nil {
			docs = []models.DocumentSummary{}
		}
		respondJSON(w, http.StatusOK, docs)
	}
}

// HandleCreateDocument creates an empty document with the given title.
func HandleCreateDocument(store DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		var req models.CreateDocumentRequest
		if isJSONRequest(r) || mediaType(r) == "" {
			if err := decodeJSON(r, &req); err != nil {
				respondDecodeError(w, err)
				return
			}
		} else {
			if err := parseForm(r); err != nil {
				respondDecodeError(w, err)
				return
			}
			req.Title = r.PostFormValue("title")
		}

		if strings.TrimSpace(req.Title) == "" {
			respondError(w, http.StatusBadRequest, "Missing title")
			return
		}
		title, err := validation.NormalizeTitle(req.Title)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		doc, err := store.CreateDocument(r.Context(), team, title, "")
		if err != nil {
			log.Error("Failed to create document", "error", err)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}

		log.Info("Document created", "doc_id", doc.ID)
		respondJSON(w, http.StatusCreated, createDocumentResponse{ID: doc.ID, Title: doc.Title})
	}
}

// HandleGetDocument returns one document owned by the team.
func HandleGetDocument(store DocumentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}
		docID, ok := documentIDParam(w, r)
		if !ok {
			return
		}

		doc, err := store.GetDocument(r.Context(), team, docID)
		if err != nil {
			if errors.Is(err, db.ErrDocumentNotFound) {
				respondError(w, http.StatusNotFound, "Document not found")
				return
			}
			log.Error("Failed to load document", "error", err, "doc_id", docID)
			respondError(w, http.StatusInternalServerError, "Failed to load document")
			return
		}
		respondJSON(w, http.StatusOK, doc)
	}
}

// HandleUpdateDocument replaces a document's content and records the edit
// in the activity log.
func HandleUpdateDocument(store DocumentStore, clock quartz.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		var req updateDocumentRequest
		if isJSONRequest(r) || mediaType(r) == "" {
			if err := decodeJSON(r, &req); err != nil {
				respondDecodeError(w, err)
				return
			}
		} else {
			if err := parseForm(r); err != nil {
				respondDecodeError(w, err)
				return
			}
			if values, present := r.PostForm["content"]; present && len(values) > 0 {
				req.Content = &values[0]
			}
			req.Username = r.PostFormValue("username")
		}
		if req.Content == nil {
			respondError(w, http.StatusBadRequest, "Missing content")
			return
		}

		docID, ok := documentIDParam(w, r)
		if !ok {
			return
		}

		previous, err := store.UpdateDocumentContent(r.Context(), team, docID, *req.Content)
		if err != nil {
			if errors.Is(err, db.ErrDocumentNotFound) {
				respondError(w, http.StatusNotFound, "Document not found")
				return
			}
			log.Error("Failed to update document", "error", err, "doc_id", docID)
			respondError(w, http.StatusInternalServerError, "Server error")
			return
		}

		actor := actingUser(r, req.Username, team)
		rec := models.ActivityRecord{
			DocID:      docID.String(),
			UserEmail:  actor,
			Action:     actionUpdate,
			OccurredAt: clock.Now().UTC(),
			WordsAdded: wordsAdded(previous, *req.Content),
		}
		if err := store.AppendActivity(r.Context(), rec); err != nil {
			log.Warn("Failed to record activity", "error", err, "doc_id", docID)
		}

		respondMessage(w, http.StatusOK, "Document updated")
	}
}

// HandleDeleteDocument deletes a document, then its activity and any
// archived upload.
func HandleDeleteDocument(store DocumentStore, archive ArchiveStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}
		docID, ok := documentIDParam(w, r)
		if !ok {
			return
		}

		if err := store.DeleteDocument(r.Context(), team, docID); err != nil {
			if errors.Is(err, db.ErrDocumentNotFound) {
				respondError(w, http.StatusNotFound, "Document not found")
				return
			}
			log.Error("Failed to delete document", "error", err, "doc_id", docID)
			respondError(w, http.StatusInternalServerError, "Failed to delete document")
			return
		}

		if _, err := store.DeleteEvents(r.Context(), []string{docID.String()}); err != nil {
			log.Warn("Failed to delete document activity", "error", err, "doc_id", docID)
		}
		if archive != nil {
			if _, err := archive.DeleteDocumentArchives(r.Context(), team, docID.String()); err != nil {
				log.Warn("Failed to delete document archive", "error", err, "doc_id", docID)
			}
		}

		respondMessage(w, http.StatusOK, "Document deleted")
	}
}

// actingUser picks who made an edit: the body's username, then the
// X-Username header, then the team itself.
func actingUser(r *http.Request, bodyUsername, team string) string {
	if u := strings.TrimSpace(bodyUsername); u != "" {
		return u
	}
	if u := strings.TrimSpace(r.Header.Get("X-Username")); u != "" {
		return u
	}
	return team
}

// wordsAdded is the growth in whitespace-separated words, never negative.
func wordsAdded(previous, current string) int {
	delta := len(strings.Fields(current)) - len(strings.Fields(previous))
	if delta < 0 {
		return 0
	}
	return delta
}
