package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"mozhi/internal/ratelimit"
	"mozhi/internal/util"
	"mozhi/services/world/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                *app.App
	RedisAddr          string
	RedisPassword      string
	RateLimitPerMinute int
	TrustedProxyCIDRs  []string
	CORSAllowedOrigins []string
	// Limiter overrides the Redis limiter built from RedisAddr.
	Limiter ratelimit.Limiter
}

// Server exposes HTTP endpoints for the world service.
type Server struct {
	app      *app.App
	router   *chi.Mux
	validate *validator.Validate
	limiter  ratelimit.Limiter
	closer   func() error
	trusted  *util.TrustedProxies
	cors     []string
}

// New constructs the server with routes configured. Rate limiting is
// enabled only when a limiter is given or RedisAddr is set, and lets
// requests through while Redis is unreachable.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	s := &Server{
		app:      cfg.App,
		router:   chi.NewRouter(),
		validate: newValidator(),
		trusted:  trusted,
		cors:     cfg.CORSAllowedOrigins,
		closer:   func() error { return nil },
	}
	switch {
	case cfg.Limiter != nil:
		s.limiter = cfg.Limiter
	case strings.TrimSpace(cfg.RedisAddr) != "" && cfg.RateLimitPerMinute > 0:
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute, ratelimit.WithFailOpen(true))
		if err != nil {
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		s.limiter = limiter
		s.closer = limiter.Close
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the rate limiter connection.
func (s *Server) Close() error {
	return s.closer()
}

func (s *Server) routes() {
	r := s.router
	r.Use(
		util.WithRequestID,
		util.WithRequestLog("world"),
		util.WithRecover(writeInternal),
		util.WithSecurityHeaders,
		util.WithCORS(s.cors),
		ratelimit.Middleware(s.limiter, s.rateLimitKey, s.handleRateLimited),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeHTTPError(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeHTTPError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/db/check", s.handleDBCheck)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Post("/", s.handleCreateUser)
		r.Get("/{userID}", s.handleGetUser)
		r.Put("/{userID}", s.handleUpdateUser)
		r.Delete("/{userID}", s.handleDeleteUser)
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Put("/", s.handleUpdateBook)
			r.Delete("/", s.handleDeleteBook)
			r.Put("/cover", s.handleUploadCover)
			r.Get("/cover", s.handleGetCover)
			s.worldRoutes(r)
		})
	})

	r.Route("/suggestions", func(r chi.Router) {
		r.Get("/", s.handleSearchSuggestions)
		r.Post("/", s.handleCreateSuggestion)
		r.Get("/{id}", s.handleGetSuggestion)
		r.Put("/{id}", s.handleUpdateSuggestion)
		r.Delete("/{id}", s.handleDeleteSuggestion)
	})
}

// rateLimitKey keys clients by address.
func (s *Server) rateLimitKey(r *http.Request) string {
	return "ip:" + util.ClientIP(r, s.trusted)
}

// handleRateLimited answers 429, except for liveness probes.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		s.handleHealth(w, r)
		return
	}
	w.Header().Set("Retry-After", "60")
	writeHTTPError(w, r, http.StatusTooManyRequests, "Too Many Requests")
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the mo-zhi worldbuilding API",
		"docs":    "/docs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "service is running",
	})
}

// handleDBCheck reports "fail" when the round trip answers unexpectedly and
// lets store errors surface as 500.
func (s *Server) handleDBCheck(w http.ResponseWriter, r *http.Request) {
	ok, err := s.app.CheckDB(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := "ok"
	if !ok {
		status = "fail"
	}
	writeJSON(w, http.StatusOK, map[string]string{"db": status})
}
