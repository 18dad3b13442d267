package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ConfabulousDev/teamdocs/internal/docx"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/validation"
)

// UploadStore is the subset of Store used by the upload handler.
type UploadStore interface {
	CreateDocument(ctx context.Context, ownerEmail, title, content string) (*models.Document, error)
}

// uploadResponse is returned by POST /upload_doc.
type uploadResponse struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

// HandleUploadDoc turns an uploaded .docx into a new document. The original
// file is archived when object storage is configured.
func HandleUploadDoc(store UploadStore, archive ArchiveStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())
		team, ok := teamFromContext(w, r)
		if !ok {
			return
		}

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			respondError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil || header.Filename == "" {
			respondError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()

		fileName := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
		ext := path.Ext(fileName)
		if !strings.EqualFold(ext, ".docx") {
			respondError(w, http.StatusBadRequest, "Only .docx files are supported")
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			log.Error("Failed to read upload", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to upload document")
			return
		}

		text, err := docx.ExtractText(data)
		if err != nil {
			log.Warn("Failed to read .docx", "error", err, "file_name", fileName)
			respondError(w, http.StatusInternalServerError, "Error reading .docx file")
			return
		}

		doc, err := store.CreateDocument(r.Context(), team, uploadTitle(fileName, ext), text)
		if err != nil {
			log.Error("Failed to create document from upload", "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to upload document")
			return
		}

		if archive != nil {
			key, err := archive.UploadArchive(r.Context(), team, doc.ID, fileName, data)
			if err != nil {
				log.Warn("Failed to archive upload", "error", err, "doc_id", doc.ID)
			} else {
				log.Debug("Archived upload", "doc_id", doc.ID, "key", key)
			}
		}

		log.Info("Document uploaded", "doc_id", doc.ID, "bytes", len(data))
		respondJSON(w, http.StatusOK, uploadResponse{Message: "File uploaded", DocID: doc.ID})
	}
}

// uploadTitle derives a document title from the file name stem.
func uploadTitle(fileName, ext string) string {
	stem := strings.TrimSpace(strings.TrimSuffix(fileName, ext))
	if stem == "" {
		return "Untitled"
	}
	if utf8.RuneCountInString(stem) > validation.MaxTitleLength {
		stem = string([]rune(stem)[:validation.MaxTitleLength])
	}
	return stem
}
