// Package server provides the HTTP API for editing and publishing site content.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/folio-admin/internal/auth"
	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/jonathan/folio-admin/internal/publish"
	"github.com/jonathan/folio-admin/internal/server/middleware"
	"github.com/jonathan/folio-admin/internal/server/ratelimit"
	"github.com/jonathan/folio-admin/internal/store"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies; photos arrive inline as data URLs.
const maxBodyBytes = 10 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       *store.Store
	credentials *credential.Source
	publisher   *publish.Coordinator
	auth        *auth.Authenticator
	rateLimiter *ratelimit.Limiter
	app         string
	sourceName  string
	keepAlive   time.Duration
}

// Config holds server configuration
type Config struct {
	Port       int
	App        string // Storage key prefix, also used for export file names
	SourceName string // File name offered for the source module download
	RateLimit  *ratelimit.Config
}

// Deps are the components the server exposes.
type Deps struct {
	Store       *store.Store
	Credentials *credential.Source
	Publisher   *publish.Coordinator
	Auth        *auth.Authenticator
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "portfolioData.js"
	}

	s := &Server{
		store:       deps.Store,
		credentials: deps.Credentials,
		publisher:   deps.Publisher,
		auth:        deps.Auth,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		app:         cfg.App,
		sourceName:  cfg.SourceName,
		keepAlive:   25 * time.Second,
	}

	admin := middleware.AuthMiddleware(&tokenValidator{auth: deps.Auth})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Public content
	mux.HandleFunc("GET /content", s.handleGetContent)
	mux.HandleFunc("GET /content/events", s.handleContentEvents)
	mux.HandleFunc("GET /content/{section}", s.handleGetSection)

	// Admin
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.Handle("PUT /admin/content/{section}", admin(http.HandlerFunc(s.handleUpdateSection)))
	mux.Handle("PUT /admin/settings/{key}", admin(http.HandlerFunc(s.handleUpdateSetting)))
	mux.Handle("PUT /admin/password", admin(http.HandlerFunc(s.handleChangePassword)))
	mux.Handle("POST /admin/projects", admin(http.HandlerFunc(s.handleAddProject)))
	mux.Handle("POST /admin/reset", admin(http.HandlerFunc(s.handleReset)))
	mux.Handle("GET /admin/export", admin(http.HandlerFunc(s.handleExport)))
	mux.Handle("GET /admin/export/source", admin(http.HandlerFunc(s.handleExportSource)))
	mux.Handle("POST /admin/import", admin(http.HandlerFunc(s.handleImport)))
	mux.Handle("GET /admin/credential", admin(http.HandlerFunc(s.handleGetCredential)))
	mux.Handle("PUT /admin/credential", admin(http.HandlerFunc(s.handleSaveCredential)))
	mux.Handle("POST /admin/publish", admin(http.HandlerFunc(s.handlePublish)))
	mux.Handle("GET /admin/publish/status", admin(http.HandlerFunc(s.handlePublishStatus)))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /content/events streams indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the full middleware chain and router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	// Streams watch the base context, so cancelling it lets Shutdown drain them.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	s.httpServer.BaseContext = func(net.Listener) context.Context { return baseCtx }

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelBase()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()
	log.Info("Server stopped")
	return nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Storage-Warning")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errResponse maps err to a status and writes it.
func (s *Server) errResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Errorf("Request failed: %v", err)
	}
	s.jsonResponse(w, status, map[string]string{
		"error":  errorCode(err),
		"detail": err.Error(),
	})
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	log.WithFields(log.Fields{"client": clientID, "limit": info.Limit}).Warn("Rate limit exceeded")
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// tokenValidator adapts the authenticator to the middleware interface.
type tokenValidator struct {
	auth *auth.Authenticator
}

func (v *tokenValidator) ValidateToken(tokenString string) (middleware.SessionIDGetter, error) {
	claims, err := v.auth.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
