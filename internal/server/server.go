// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable: server_test.go builds a
// full server on an in-memory database and drives it over HTTP.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New
//	server.New creates: sqlite.DB → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one place
// (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/config"
	"github.com/sakif/repohub/internal/handler"
	"github.com/sakif/repohub/internal/metrics"
	"github.com/sakif/repohub/internal/middleware"
	sqliteRepo "github.com/sakif/repohub/internal/repository/sqlite"
	"github.com/sakif/repohub/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the optional Redis client. Both are
// closed in Close, which Start calls during graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	rdb     *redis.Client // nil when rate limiting is disabled
	metrics *metrics.Metrics
	tokens  *auth.TokenService
}

// New creates a Server from cfg.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sqlite.New runs migrations)
//  2. Build the auth primitives (JWT, token sealer, GitHub client)
//  3. Build the services with the store interfaces
//  4. Build the handlers with the services and wire routes
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		tokens:  tokens,
	}

	// === OPTIONAL REDIS ===
	// Without REDIS_URL the write rate limiter is simply not installed.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		s.rdb = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so a Redis outage at boot is not fatal.
			logger.Warn("redis unreachable, rate limiter will fail open", slog.String("error", err.Error()))
		}
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                              → DB ping
//	GET    /metrics                              → Prometheus
//	GET    /auth/github/login                    → redirect to GitHub
//	GET    /auth/github/callback                 → finish sign-in, set cookie
//	POST   /auth/logout                          → clear cookie
//	GET    /api/repositories                     → public listing         (optional auth)
//	GET    /api/me                               → identity + role        (user)
//	POST   /api/repositories                     → submit one or many     (user, rate limited)
//	GET    /api/repositories/pending-for-owner   → own pending            (user)
//	GET    /api/github/repos                     → import candidates      (user)
//	GET    /api/bookmarks                        → own bookmarks          (user)
//	POST   /api/bookmarks                        → add bookmark           (user, rate limited)
//	DELETE /api/bookmarks/{repositoryId}         → remove bookmark        (user)
//	GET    /api/repositories/pending-for-admin   → review queue           (admin)
//	DELETE /api/repositories/{id}                → delete                 (admin)
//	POST   /api/approvals                        → approve                (admin)
//	DELETE /api/approvals                        → reject                 (admin)
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger + Metrics: see the final status, including a recovered panic's 500
// 4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	// === Dependencies ===
	sealer, err := auth.NewTokenSealer(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token sealer: %w", err)
	}

	github := auth.NewGitHubProvider(auth.GitHubConfig{
		ClientID:     s.config.GitHubClientID,
		ClientSecret: s.config.GitHubClientSecret,
		CallbackURL:  s.config.GitHubCallbackURL,
		APIURL:       s.config.GitHubAPIURL,
	})

	// s.db implements every store interface in internal/repository.
	authService := service.NewAuthService(s.db, s.tokens, sealer, s.logger)
	repoService := service.NewRepositoryService(s.db, s.metrics, s.logger)
	approvalService := service.NewApprovalService(s.db, s.metrics, s.logger)
	bookmarkService := service.NewBookmarkService(s.db, s.db, s.metrics, s.logger)
	githubService := service.NewGitHubService(s.db, sealer, github, s.logger)

	authHandler := handler.NewAuthHandler(github, authService, s.tokens, s.config.IsProduction(), s.logger)
	repoHandler := handler.NewRepositoryHandler(repoService, approvalService, s.logger)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	bookmarkHandler := handler.NewBookmarkHandler(bookmarkService)
	githubHandler := handler.NewGitHubHandler(githubService)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	var limiter *middleware.RateLimiter
	if s.rdb != nil {
		limiter = middleware.NewRateLimiter(s.rdb, s.config.RateLimitWrites, s.config.RateLimitWindow, s.logger)
	}

	requireAuth := auth.RequireAuth(s.tokens, authService)
	optionalAuth := auth.OptionalAuth(s.tokens, authService)

	// === Operational Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Public (a session, if present, is resolved but not required)
		r.With(optionalAuth).Get("/repositories", repoHandler.HandleList)

		// Signed-in users
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)

			r.With(middleware.RateLimit(limiter, "submit")).Post("/repositories", repoHandler.HandleCreate)
			r.Get("/repositories/pending-for-owner", repoHandler.HandlePendingForOwner)
			r.Get("/github/repos", githubHandler.HandleListRepos)

			r.Get("/bookmarks", bookmarkHandler.HandleList)
			r.With(middleware.RateLimit(limiter, "bookmark")).Post("/bookmarks", bookmarkHandler.HandleAdd)
			r.Delete("/bookmarks/{repositoryId}", bookmarkHandler.HandleRemove)

			// Admins only: 403 for everyone else
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/repositories/pending-for-admin", repoHandler.HandlePendingForAdmin)
				r.Delete("/repositories/{id}", repoHandler.HandleDelete)
				r.Post("/approvals", approvalHandler.HandleApprove)
				r.Delete("/approvals", approvalHandler.HandleReject)
			})
		})
	})

	return nil
}

// Close releases the database and the Redis client.
func (s *Server) Close() error {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock) and Redis
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.Bool("rateLimit", s.rdb != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
