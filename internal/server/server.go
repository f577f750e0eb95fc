// Package server wires the HTTP API of the reminder service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-reminders/internal/auth"
	"github.com/ukydev/fleet-reminders/internal/db"
	"github.com/ukydev/fleet-reminders/internal/handlers"
	"github.com/ukydev/fleet-reminders/internal/metrics"
	"github.com/ukydev/fleet-reminders/internal/middleware"
	"github.com/ukydev/fleet-reminders/internal/models"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Auth        *auth.Service
	Executor    handlers.PassExecutor
	Reminders   db.ReminderCollection
	DB          handlers.Pinger
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	Logger      log.FieldLogger
	// Upper bound of a generation pass; the write timeout is derived from it.
	RunTimeout time.Duration
}

// Server is the HTTP server for the reminder API.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds the route tree.
func NewRouter(d Deps) http.Handler {
	authMW := middleware.NewAuthMiddleware(d.Auth)
	generation := handlers.NewGenerationHandler(d.Executor, d.Logger)
	reminderHandler := handlers.NewReminderHandler(d.Reminders, d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(d.DB))
	r.Handle("/metrics", metrics.Handler(d.Gatherer))

	r.Route("/api/reminders", func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.With(d.RateLimiter.Handler, authMW.RequirePermission(models.ActionRunGeneration)).
			Post("/generate", generation.Generate)
		r.With(authMW.RequirePermission(models.ActionViewReminders)).
			Get("/", reminderHandler.List)
		r.With(authMW.RequirePermission(models.ActionManageReminders)).
			Patch("/{id}/status", reminderHandler.UpdateStatus)
	})

	return r
}

// New creates a new server listening on addr.
func New(addr string, d Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(d),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: d.RunTimeout + 30*time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
