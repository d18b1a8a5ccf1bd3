// Package api is the thin HTTP boundary mapping requests onto the session
// store and analysis pipeline.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leadline-ai/leadline-web/internal/chat"
	"github.com/leadline-ai/leadline-web/internal/logger"
	"github.com/leadline-ai/leadline-web/internal/models"
	"github.com/leadline-ai/leadline-web/internal/ratelimit"
)

// Completer produces an assistant reply for a session's ordered messages
// (system message first). Implemented by anthropic.ChatCompleter.
type Completer interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
}

// Analyzer runs and fetches transcript analysis. Implemented by
// analysis.Pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string) (json.RawMessage, error)
	GetAnalysis(ctx context.Context, sessionID string) (json.RawMessage, *time.Time, error)
}

// Server holds dependencies for API handlers
type Server struct {
	store       *chat.Store
	completer   Completer
	analyzer    Analyzer
	chatLimiter ratelimit.RateLimiter
	origins     []string
	version     string
}

// NewServer creates a new API server
func NewServer(store *chat.Store, completer Completer, analyzer Analyzer, chatLimiter ratelimit.RateLimiter, origins []string, version string) *Server {
	return &Server{
		store:       store,
		completer:   completer,
		analyzer:    analyzer,
		chatLimiter: chatLimiter,
		origins:     origins,
		version:     version,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Content-Encoding"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}/history", s.handleGetHistory)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

		r.Post("/sessions/{sessionID}/analyze", s.handleAnalyze)
		r.Get("/sessions/{sessionID}/analysis", s.handleGetAnalysis)

		// Chat carries the LLM cost, so it alone is rate limited and
		// accepts compressed bodies from the widget.
		r.Group(func(r chi.Router) {
			if s.chatLimiter != nil {
				r.Use(ratelimit.Middleware(s.chatLimiter))
			}
			r.Use(decompressMiddleware())
			r.Post("/chat", s.handleChat)
		})
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "leadline-backend",
		"version": s.version,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
