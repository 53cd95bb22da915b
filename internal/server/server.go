// Package server wires handlers, middleware, and routes, and owns the HTTP
// server lifecycle.
//
// COMPOSITION ROOT:
// All dependencies are assembled here, in one place:
//
//	sqlite.DB (kv.Store) → account.Store ┐
//	                     → TaskHandler   ├→ chi routes
//	auth.TokenService    → AuthHandler   ┘
//
// Handlers never open the database themselves and the stores never see
// HTTP. main.go stays minimal — read config, build a Server, Start it.
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

	"github.com/tanvir/taskdeck/internal/account"
	"github.com/tanvir/taskdeck/internal/auth"
	"github.com/tanvir/taskdeck/internal/handler"
	kvsqlite "github.com/tanvir/taskdeck/internal/kv/sqlite"
	"github.com/tanvir/taskdeck/internal/middleware"
)

// Config holds server configuration, loaded by main.go from the
// environment.
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC secret for API credentials
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *kvsqlite.DB
}

// New opens the database and wires the full dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := kvsqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE MAP:
//
//	POST   /api/register        → create account (logs in, sets cookie)
//	POST   /api/login           → authenticate, set cookie
//	POST   /api/logout          → clear cookie + session pointer
//	GET    /api/me              → current session's user
//	GET    /api/tasks           → list (filter=all|active|done, sort=new|old)
//	POST   /api/tasks           → add
//	POST   /api/tasks/{id}/toggle → toggle completed
//	PUT    /api/tasks/{id}      → replace text
//	DELETE /api/tasks/completed → clear completed
//	DELETE /api/tasks/{id}      → remove
//
// Middleware order matters: RequestID and RealIP annotate the request,
// Recoverer converts panics to 500s, then our logger records the outcome.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	accounts := account.NewStore(s.db, s.logger)
	authHandler := handler.NewAuthHandler(accounts, tokens, s.logger)
	taskHandler := handler.NewTaskHandler(s.db, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/me", authHandler.HandleMe)

		// Task routes require a valid credential; the middleware puts the
		// identity email in the context and the handler scopes every
		// operation to that namespace.
		r.Route("/tasks", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/", taskHandler.HandleList)
			r.Post("/", taskHandler.HandleAdd)
			r.Post("/{id}/toggle", taskHandler.HandleToggle)
			r.Put("/{id}", taskHandler.HandleUpdate)
			// Static segment registered alongside {id}: chi matches the
			// literal "completed" before the wildcard.
			r.Delete("/completed", taskHandler.HandleClearCompleted)
			r.Delete("/{id}", taskHandler.HandleRemove)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests (30s budget), close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
