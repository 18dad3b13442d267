package logger

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type accessKey struct{}

// SetRequestTeam attaches the authenticated team to the request's access log
// line. No-op outside AccessLog.
func SetRequestTeam(ctx context.Context, team string) {
	if aw, ok := ctx.Value(accessKey{}).(*accessWriter); ok {
		aw.team = team
	}
}

type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	team   string
}

func (w *accessWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *accessWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades pass through the access log.
func (w *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.status = http.StatusSwitchingProtocols
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *accessWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// AccessLog logs one structured line per request after it completes.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		aw := &accessWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(aw, r.WithContext(context.WithValue(r.Context(), accessKey{}, aw)))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", aw.status,
			"bytes", aw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			args = append(args, "req_id", reqID)
		}
		if aw.team != "" {
			args = append(args, "team", aw.team)
		}

		switch {
		case aw.status >= 500:
			log.Error("request", args...)
		case aw.status >= 400:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}
	})
}
