package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/klauspost/compress/zip"
)

const minimalDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Quarterly plan</w:t></w:r></w:p>
<w:p><w:r><w:t>Ship the editor.</w:t></w:r></w:p>
</w:body>
</w:document>`

func makeDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   minimalDocumentXML,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create failed: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close failed: %v", err)
	}
	return buf.Bytes()
}

// multipartBody builds a multipart body with an optional file part.
func multipartBody(t *testing.T, field, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, fileName)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	} else if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("WriteField failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleUploadDoc(t *testing.T) {
	t.Run("creates document and archives original", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartBody(t, "file", "Plan Q3.docx", makeDocx(t))

		w := env.do(t, "POST", "/upload_doc", body, ct, testTeam)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp uploadResponse
		decodeBody(t, w, &resp)
		if resp.Message != "File uploaded" || resp.DocID == "" {
			t.Fatalf("unexpected response: %+v", resp)
		}

		doc := env.store.docs[resp.DocID]
		if doc == nil {
			t.Fatal("document was not stored")
		}
		if doc.Title != "Plan Q3" {
			t.Errorf("expected title from file stem, got %q", doc.Title)
		}
		if doc.Content != "Quarterly plan\nShip the editor." {
			t.Errorf("unexpected content: %q", doc.Content)
		}
		if doc.OwnerEmail != testTeam {
			t.Errorf("unexpected owner: %q", doc.OwnerEmail)
		}
		if env.archive.count() != 1 {
			t.Errorf("expected 1 archived object, got %d", env.archive.count())
		}
	})

	tests := []struct {
		name     string
		field    string
		fileName string
		data     []byte
		wantCode int
		wantErr  string
	}{
		{"no file part", "", "", nil, http.StatusBadRequest, "No file uploaded"},
		{"wrong field", "upload", "a.docx", []byte("x"), http.StatusBadRequest, "No file uploaded"},
		{"not docx", "file", "notes.txt", []byte("hello"), http.StatusBadRequest, "Only .docx files are supported"},
		{"legacy doc", "file", "notes.doc", []byte("hello"), http.StatusBadRequest, "Only .docx files are supported"},
		{"corrupt docx", "file", "broken.docx", []byte("not a zip"), http.StatusInternalServerError, "Error reading .docx file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body, ct := multipartBody(t, tt.field, tt.fileName, tt.data)

			w := env.do(t, "POST", "/upload_doc", body, ct, testTeam)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if got := errorMessage(t, w); got != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, got)
			}
			if len(env.store.docs) != 0 {
				t.Error("no document should be created")
			}
		})
	}

	t.Run("uppercase extension is accepted", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartBody(t, "file", "REPORT.DOCX", makeDocx(t))

		w := env.do(t, "POST", "/upload_doc", body, ct, testTeam)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("works without archive storage", func(t *testing.T) {
		env := newTestEnv(t)
		env.handler = NewServer(env.store, nil, env.tokens, Config{Clock: env.clock}).SetupRoutes()
		body, ct := multipartBody(t, "file", "plan.docx", makeDocx(t))

		w := env.do(t, "POST", "/upload_doc", body, ct, testTeam)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestUploadTitle(t *testing.T) {
	tests := []struct {
		fileName, ext, want string
	}{
		{"plan.docx", ".docx", "plan"},
		{" spaced .docx", ".docx", "spaced"},
		{".docx", ".docx", "Untitled"},
	}
	for _, tt := range tests {
		if got := uploadTitle(tt.fileName, tt.ext); got != tt.want {
			t.Errorf("uploadTitle(%q) = %q, want %q", tt.fileName, got, tt.want)
		}
	}
}
