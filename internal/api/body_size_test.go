package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithMaxBody(t *testing.T) {
	t.Run("allows request under limit", func(t *testing.T) {
		handler := withMaxBody(1024, func(w http.ResponseWriter, r *http.Request) {
			// Read the body to trigger MaxBytesReader
			buf := new(bytes.Buffer)
			_, err := buf.ReadFrom(r.Body)
			if err != nil {
				t.Errorf("unexpected error reading body: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		body := strings.Repeat("x", 512) // 512 bytes, under 1KB limit
		req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("rejects request over limit", func(t *testing.T) {
		handler := withMaxBody(1024, func(w http.ResponseWriter, r *http.Request) {
			// Read the body to trigger MaxBytesReader
			buf := new(bytes.Buffer)
			_, err := buf.ReadFrom(r.Body)
			if err != nil {
				// MaxBytesReader returns an error when limit exceeded
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		body := strings.Repeat("x", 2048) // 2KB, over 1KB limit
		req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected status 413, got %d", rr.Code)
		}
	})

	t.Run("allows request at exact limit", func(t *testing.T) {
		handler := withMaxBody(1024, func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, err := buf.ReadFrom(r.Body)
			if err != nil {
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		body := strings.Repeat("x", 1024) // exactly 1KB
		req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("rejects request one byte over limit", func(t *testing.T) {
		handler := withMaxBody(1024, func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, err := buf.ReadFrom(r.Body)
			if err != nil {
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		body := strings.Repeat("x", 1025) // 1 byte over limit
		req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected status 413, got %d", rr.Code)
		}
	})

	t.Run("empty body passes", func(t *testing.T) {
		handler := withMaxBody(1024, func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, err := buf.ReadFrom(r.Body)
			if err != nil {
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMaxBodyConstants(t *testing.T) {
	if !(maxJSONBody < maxDocumentBody && maxDocumentBody < maxUploadBody) {
		t.Error("body limits should be ascending: JSON < document < upload")
	}
	if maxFormMemory > maxUploadBody {
		t.Errorf("maxFormMemory (%d) should not exceed maxUploadBody (%d)", maxFormMemory, maxUploadBody)
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	handler := withMaxBody(64, func(w http.ResponseWriter, r *http.Request) {
		var req summarizeRequest
		if err := decodeJSON(r, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("over limit is 413", func(t *testing.T) {
		body := `{"text":"` + strings.Repeat("x", 200) + `"}`
		req := httptest.NewRequest("POST", "/summarize", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected status 413, got %d", rr.Code)
		}
	})

	t.Run("malformed is 400", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/summarize", strings.NewReader(`{"text":`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/summarize", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}
