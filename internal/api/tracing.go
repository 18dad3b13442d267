package api

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpanEnricher is a middleware that enriches the current span with request metadata.
// Adds the client address and, for document edits, the acting username header.
func SpanEnricher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		if span.IsRecording() {
			span.SetAttributes(attribute.String("client.address", r.RemoteAddr))
			if u := strings.TrimSpace(r.Header.Get("X-Username")); u != "" {
				span.SetAttributes(attribute.String("teamdocs.username", u))
			}
		}

		next.ServeHTTP(w, r)
	})
}
