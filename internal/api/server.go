// Package api is the persistence service: a REST API over a plan store.
// Coordinates on the wire are integer ticks.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"seatplan/internal/catalog"
	"seatplan/internal/service"
)

const (
	DefaultListen  = ":8080"
	DefaultTimeout = 60 * time.Second
	DefaultRealm   = "seatplan"
)

type Options struct {
	Listen string
	// Users enables basic auth when non-empty: user name to password.
	Users   map[string]string
	Realm   string
	Timeout time.Duration
	Logger  *log.Logger
}

type Server struct {
	plans   *service.PlanService
	catalog *catalog.Catalog
	opts    Options
	logger  *log.Logger
}

func New(plans *service.PlanService, cat *catalog.Catalog, opts Options) *Server {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Realm == "" {
		opts.Realm = DefaultRealm
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Server{plans: plans, catalog: cat, opts: opts, logger: opts.Logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.Timeout))

	if len(s.opts.Users) > 0 {
		r.Use(middleware.BasicAuth(s.opts.Realm, s.opts.Users))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/classrooms", func(r chi.Router) {
			r.Mount("/", s.apiClassroomRouter())
		})
		r.Route("/plans", func(r chi.Router) {
			r.Mount("/", s.apiPlanRouter())
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Mount("/", s.apiCatalogRouter())
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Listen, "auth", len(s.opts.Users) > 0)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
