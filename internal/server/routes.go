package server

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /uploads", h.CreateUpload)
	mux.HandleFunc("GET /uploads", h.ListUploads)
	mux.HandleFunc("GET /uploads/{id}", h.GetUpload)
	mux.HandleFunc("GET /uploads/{id}/file", h.GetUploadFile)
	mux.HandleFunc("GET /uploads/{id}/timeline", h.GetTimeline)

	mux.HandleFunc("POST /process", h.Process)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /download/{id}", h.Download)

	if h.sessions != nil {
		mux.HandleFunc("POST /sessions", h.sessions.Create)
		mux.HandleFunc("GET /sessions/{id}", h.sessions.Get)
		mux.HandleFunc("DELETE /sessions/{id}", h.sessions.Delete)
		mux.HandleFunc("POST /sessions/{id}/events", h.sessions.HandleEvent)
		mux.HandleFunc("GET /sessions/{id}/preview", h.sessions.GetPreview)
		mux.HandleFunc("POST /sessions/{id}/preview/play", h.sessions.PreviewPlay)
		mux.HandleFunc("POST /sessions/{id}/preview/pause", h.sessions.PreviewPause)
		mux.HandleFunc("POST /sessions/{id}/preview/seek", h.sessions.PreviewSeek)
		mux.HandleFunc("POST /sessions/{id}/submit", h.sessions.Submit)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		corsHandler.Handler,
	)

	return chain(mux)
}
