package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ConfabulousDev/teamdocs/internal/api"
	"github.com/ConfabulousDev/teamdocs/internal/auth"
	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
	"github.com/ConfabulousDev/teamdocs/internal/ratelimit"
	"github.com/ConfabulousDev/teamdocs/internal/storage"
	"github.com/ConfabulousDev/teamdocs/internal/summarize"
	"github.com/ConfabulousDev/teamdocs/internal/summaryquota"
)

var version string

func main() {
	// Check for worker mode
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		runWorker()
		return
	}

	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	config := loadConfig()

	database, err := db.Connect(config.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	if config.RunMigrations {
		if err := db.Migrate(database.Conn()); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		logger.Info("database migrations applied")
	}

	tokens, err := auth.NewTokenIssuer(config.JWTSecret, config.AccessTTL, config.RefreshTTL)
	if err != nil {
		logger.Fatal("failed to create token issuer", "error", err)
	}

	// Upload archiving is optional; a nil interface disables it
	var archive api.ArchiveStore
	if config.S3Enabled {
		s3, err := storage.NewS3Storage(config.S3Config)
		if err != nil {
			logger.Fatal("failed to initialize storage", "error", err)
		}
		archive = s3
		logger.Info("upload archiving enabled", "bucket", config.S3Config.BucketName)
	} else {
		logger.Info("upload archiving disabled (S3_ENDPOINT, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY or BUCKET_NAME not set)")
	}

	var summarizer summarize.Summarizer = summarize.NewTextRank()
	if config.AnthropicAPIKey != "" {
		summarizer = summarize.NewLLM(config.AnthropicAPIKey, config.SummaryModel,
			summarize.WithFallback(summarizer))
		logger.Info("LLM summarizer enabled", "model", config.SummaryModel)
	}

	// Quotas only apply to LLM-backed summaries.
	var quota api.SummaryQuota
	if config.AnthropicAPIKey != "" && config.SummaryMonthlyQuota > 0 {
		quota = summaryquota.NewLimiter(database.Conn(), config.SummaryMonthlyQuota, nil)
		logger.Info("summary quota enabled", "per_month", config.SummaryMonthlyQuota)
	}

	limiter := ratelimit.NewInMemoryRateLimiter(config.AuthRateLimitRPS, config.AuthRateLimitBurst)
	defer limiter.Stop()

	server := api.NewServer(database, archive, tokens, api.Config{
		AllowedOrigins:  config.AllowedOrigins,
		Version:         version,
		Summarizer:      summarizer,
		AuthRateLimiter: limiter,
		SummaryQuota:    quota,
	})
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "teamdocs-backend")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,  // Configurable via HTTP_READ_TIMEOUT (default: 30s)
		WriteTimeout: config.WriteTimeout, // Configurable via HTTP_WRITE_TIMEOUT (default: 30s)
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", config.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

type Config struct {
	Port               int
	DatabaseURL        string
	RunMigrations      bool
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	JWTSecret          string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	AllowedOrigins     []string
	S3Enabled          bool
	S3Config           storage.S3Config
	AnthropicAPIKey    string
	SummaryModel       string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
	// SummaryMonthlyQuota caps LLM summaries per team per month; 0 disables it.
	SummaryMonthlyQuota int
}

const (
	defaultPort         = 5050
	defaultSummaryModel = "claude-3-5-haiku-latest"
	minJWTSecretLength  = 32
)

func loadConfig() Config {
	port := defaultPort
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	readTimeout := envDuration("HTTP_READ_TIMEOUT", 30*time.Second)
	writeTimeout := envDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		logger.Fatal("missing required env var", "var", "JWT_SECRET_KEY", "hint", "must be at least 32 characters")
	}
	if len(jwtSecret) < minJWTSecretLength {
		logger.Fatal("invalid env var", "var", "JWT_SECRET_KEY", "error", "must be at least 32 characters")
	}

	accessHours := envInt("JWT_ACCESS_HOURS", 2)
	refreshDays := envInt("JWT_REFRESH_DAYS", 7)

	allowedOrigins := splitOrigins(os.Getenv("ALLOWED_ORIGINS"))

	s3Config := storage.S3Config{
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("BUCKET_NAME"),
		UseSSL:          os.Getenv("S3_USE_SSL") != "false", // Default true
	}
	s3Enabled := s3Config.Endpoint != "" && s3Config.AccessKeyID != "" &&
		s3Config.SecretAccessKey != "" && s3Config.BucketName != ""

	summaryModel := os.Getenv("SUMMARY_MODEL")
	if summaryModel == "" {
		summaryModel = defaultSummaryModel
	}

	rps := 1.0
	if v := os.Getenv("AUTH_RATE_LIMIT_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rps = parsed
		}
	}

	return Config{
		Port:               port,
		DatabaseURL:        databaseURL,
		RunMigrations:      os.Getenv("RUN_MIGRATIONS") == "true",
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		JWTSecret:          jwtSecret,
		AccessTTL:          time.Duration(accessHours) * time.Hour,
		RefreshTTL:         time.Duration(refreshDays) * 24 * time.Hour,
		AllowedOrigins:     allowedOrigins,
		S3Enabled:          s3Enabled,
		S3Config:           s3Config,
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		SummaryModel:       summaryModel,
		AuthRateLimitRPS:   rps,
		AuthRateLimitBurst: envInt("AUTH_RATE_LIMIT_BURST", 10),

		SummaryMonthlyQuota: envInt("SUMMARY_MONTHLY_QUOTA", 0),
	}
}

// envDuration parses a duration env var, keeping def when unset or invalid.
func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// envInt parses a positive integer env var, keeping def when unset or invalid.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

// splitOrigins parses a comma-separated origin list. Empty means any origin.
func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// startPprofServer starts a pprof debug server on localhost:6060.
//
// Available endpoints:
//   - /debug/pprof/heap      - heap memory profile
//   - /debug/pprof/goroutine - goroutine stack traces
//   - /debug/pprof/profile   - CPU profile (30s default)
//   - /debug/pprof/trace     - execution trace
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
