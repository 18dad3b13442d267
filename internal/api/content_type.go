package api

import (
	"net/http"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

// acceptedMediaTypes are the request body types handlers know how to read.
var acceptedMediaTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
}

// validateContentType middleware ensures POST/PUT/PATCH requests with a body
// declare a Content-Type the handlers can parse
func validateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		hasBody := r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody
		if hasBody && (method == "POST" || method == "PUT" || method == "PATCH") {
			log := logger.Ctx(r.Context())
			contentType := r.Header.Get("Content-Type")

			if contentType == "" {
				log.Info("Request missing Content-Type header", "method", method, "path", r.URL.Path)
				respondError(w, http.StatusUnsupportedMediaType, "Content-Type header required")
				return
			}

			mt := mediaType(r)
			if !acceptedMediaTypes[mt] {
				log.Info("Request with invalid Content-Type", "method", method, "path", r.URL.Path, "content_type", mt)
				respondError(w, http.StatusUnsupportedMediaType, "Unsupported Content-Type")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
