package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

// maxDebugBodySize is the maximum size of request/response bodies to log
// Larger bodies are truncated to avoid log bloat
const maxDebugBodySize = 10 * 1024 // 10KB

// sensitiveFields are replaced before a JSON body is logged.
var sensitiveFields = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"access_token":     true,
	"refresh_token":    true,
}

// debugLoggingMiddleware logs request and response bodies when debug logging is enabled
// This should be placed after decompression middleware so we log the decompressed content
func debugLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.IsDebug() {
				next.ServeHTTP(w, r)
				return
			}

			requestID := middleware.GetReqID(r.Context())

			switch {
			case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"):
				logger.Debug("request body",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"body", "[multipart omitted]",
				)
			case r.Body != nil && r.ContentLength != 0:
				// Downstream handlers get the full body back
				fullBody, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(fullBody))

				logBody := redactBody(fullBody)
				truncated := len(logBody) > maxDebugBodySize
				if truncated {
					logBody = logBody[:maxDebugBodySize]
				}

				logger.Debug("request body",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"body", string(logBody),
					"truncated", truncated,
				)
			}

			ww := &responseCapture{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
				maxSize:        maxDebugBodySize,
				status:         http.StatusOK,
			}

			next.ServeHTTP(ww, r)

			logger.Debug("response body",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"body", string(redactBody(ww.body.Bytes())),
				"truncated", ww.truncated,
			)
		})
	}
}

// redactBody masks credential fields in a top-level JSON object. Anything
// that is not a JSON object is returned unchanged.
func redactBody(body []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	changed := false
	for k := range obj {
		if sensitiveFields[k] {
			obj[k] = json.RawMessage(`"[REDACTED]"`)
			changed = true
		}
	}
	if !changed {
		return body
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}

// responseCapture wraps http.ResponseWriter to capture the response body
type responseCapture struct {
	http.ResponseWriter
	body      *bytes.Buffer
	status    int
	maxSize   int
	truncated bool
}

func (w *responseCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseCapture) Write(b []byte) (int, error) {
	if !w.truncated && w.body.Len() < w.maxSize {
		remaining := w.maxSize - w.body.Len()
		if len(b) <= remaining {
			w.body.Write(b)
		} else {
			w.body.Write(b[:remaining])
			w.truncated = true
		}
	} else if w.body.Len() >= w.maxSize {
		w.truncated = true
	}

	return w.ResponseWriter.Write(b)
}

func (w *responseCapture) Unwrap() http.ResponseWriter { return w.ResponseWriter }
