package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/ConfabulousDev/teamdocs/internal/admin"
	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/models"
	"github.com/ConfabulousDev/teamdocs/internal/ratelimit"
	"github.com/ConfabulousDev/teamdocs/internal/realtime"
	"github.com/ConfabulousDev/teamdocs/internal/summarize"
)

// Request body limits
const (
	maxJSONBody     = 64 * 1024        // 64KB for small JSON payloads
	maxDocumentBody = 8 * 1024 * 1024  // 8MB for document content
	maxUploadBody   = 32 * 1024 * 1024 // 32MB for .docx uploads
)

// Store is everything the handlers need from the database.
// *db.DB satisfies it.
type Store interface {
	auth.TeamStore
	analytics.DocumentDirectory
	analytics.ActivityLogStore

	UpdateTeamPassword(ctx context.Context, email, passwordHash string) error
	AddTeamMember(ctx context.Context, email, username string) error
	RemoveTeamMember(ctx context.Context, email, username string) error
	DeleteTeam(ctx context.Context, email string) error
	ListTeams(ctx context.Context) ([]models.TeamSummary, error)

	CreateDocument(ctx context.Context, ownerEmail, title, content string) (*models.Document, error)
	ListDocuments(ctx context.Context, ownerEmail string) ([]models.DocumentSummary, error)
	GetDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) (*models.Document, error)
	UpdateDocumentContent(ctx context.Context, ownerEmail string, docID uuid.UUID, content string) (string, error)
	DeleteDocument(ctx context.Context, ownerEmail string, docID uuid.UUID) error
	DeleteTeamDocuments(ctx context.Context, ownerEmail string) (int64, error)

	AppendActivity(ctx context.Context, rec models.ActivityRecord) error
	Ping(ctx context.Context) error
}

// ArchiveStore keeps the original bytes of uploaded files. Optional.
type ArchiveStore interface {
	UploadArchive(ctx context.Context, teamEmail, docID, fileName string, data []byte) (string, error)
	DeleteDocumentArchives(ctx context.Context, teamEmail, docID string) (int, error)
	DeleteTeamArchives(ctx context.Context, teamEmail string) (int, error)
}

// Config holds optional server settings.
type Config struct {
	AllowedOrigins  []string
	Version         string
	Summarizer      summarize.Summarizer
	AuthRateLimiter ratelimit.RateLimiter
	SummaryQuota    SummaryQuota
	Clock           quartz.Clock
}

// Server holds dependencies for API handlers
type Server struct {
	store          Store
	archive        ArchiveStore
	tokens         *auth.TokenIssuer
	analytics      *analytics.Service
	hub            *realtime.Hub
	summarizer     summarize.Summarizer
	authLimiter    ratelimit.RateLimiter
	summaryQuota   SummaryQuota
	clock          quartz.Clock
	allowedOrigins []string
	version        string
}

// NewServer creates a new API server. archive may be nil.
func NewServer(store Store, archive ArchiveStore, tokens *auth.TokenIssuer, cfg Config) *Server {
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = summarize.NewTextRank()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &Server{
		store:          store,
		archive:        archive,
		tokens:         tokens,
		analytics:      analytics.NewService(store, store, analytics.WithClock(clock)),
		hub:            realtime.NewHub(),
		summarizer:     summarizer,
		authLimiter:    cfg.AuthRateLimiter,
		summaryQuota:   cfg.SummaryQuota,
		clock:          clock,
		allowedOrigins: origins,
		version:        version,
	}
}

// PurgeTeam removes a team and everything it owns. Used by the admin API.
func (s *Server) PurgeTeam(ctx context.Context, email string) {
	purgeTeam(ctx, s.store, s.archive, email)
}

// Hub exposes the realtime hub, mainly for tests and shutdown hooks.
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(logger.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Encoding", "X-Username"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(newCompressor().Handler)
	r.Use(SpanEnricher)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// The websocket route skips the body middlewares below
	r.Get("/ws", realtime.Handler(s.hub, realtime.HandlerOptions{
		OriginPatterns: originPatterns(s.allowedOrigins),
	}))

	r.Group(func(r chi.Router) {
		r.Use(decompressMiddleware())
		r.Use(debugLoggingMiddleware())
		r.Use(validateContentType)

		// Health check
		r.Get("/health", s.handleHealth)
		r.Get("/", s.handleRoot)

		// Credential endpoints are rate limited per client
		r.Group(func(r chi.Router) {
			if s.authLimiter != nil {
				r.Use(ratelimit.Middleware(s.authLimiter))
			}
			r.Post("/signup", auth.HandleSignup(s.store))
			r.Post("/login", auth.HandleLogin(s.store, s.tokens))
			r.Post("/refresh", auth.HandleRefresh(s.tokens))
		})

		// Protected routes require a bearer access token
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/documents", HandleListDocuments(s.store))
			r.Post("/documents", withMaxBody(maxJSONBody, HandleCreateDocument(s.store)))
			r.Get("/documents/{id}", HandleGetDocument(s.store))
			r.Post("/documents/{id}", withMaxBody(maxDocumentBody, HandleUpdateDocument(s.store, s.clock)))
			r.Delete("/documents/{id}", HandleDeleteDocument(s.store, s.archive))
			r.Post("/upload_doc", withMaxBody(maxUploadBody, HandleUploadDoc(s.store, s.archive)))

			r.Get("/analytics", HandleGetAnalytics(s.analytics))
			r.Post("/analytics/reset", HandleResetAnalytics(s.analytics))

			r.Post("/summarize", withMaxBody(maxDocumentBody, HandleSummarize(s.summarizer, s.summaryQuota)))

			r.Post("/change_password", withMaxBody(maxJSONBody, HandleChangePassword(s.store)))
			r.Post("/add_member", withMaxBody(maxJSONBody, HandleAddMember(s.store)))
			r.Get("/team_members", HandleTeamMembers(s.store))
			r.Post("/remove_member", withMaxBody(maxJSONBody, HandleRemoveMember(s.store)))
			r.Delete("/delete_account", HandleDeleteAccount(s.store, s.archive))

			adminHandlers := admin.NewHandlers(s.store, s)
			r.Route("/admin", func(r chi.Router) {
				r.Use(admin.Middleware())
				r.Get("/teams", adminHandlers.HandleListTeams)
				r.Delete("/teams/{email}", adminHandlers.HandleDeleteTeam)
			})
		})
	})

	return r
}

// newCompressor compresses JSON responses, preferring brotli over gzip.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(5, "application/json", "text/plain")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// originPatterns converts CORS origins into the host patterns the websocket
// library checks against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		logger.Ctx(r.Context()).Error("Health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "teamdocs",
		"version": s.version,
	})
}

// withMaxBody caps the request body for a single handler.
func withMaxBody(limit int64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next(w, r)
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondMessage writes a {"message": ...} response
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
