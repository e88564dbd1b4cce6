// Package server wires the HTTP surface: generic resource routes, search,
// related-record lookups, health, and the admin reset, with rate limiting
// and request logging applied router-wide.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apimockr/apimockr/pkg/config"
	"github.com/apimockr/apimockr/pkg/ratelimit"
	"github.com/apimockr/apimockr/pkg/resource"
)

// ResetFunc restores the store to its seeded state.
type ResetFunc func(ctx context.Context) error

// Server is the HTTP front of the mock API.
type Server struct {
	cfg   *config.Config
	log   *slog.Logger
	reset ResetFunc

	controllers map[string]*resource.Controller

	limiter      *ratelimit.PerIPLimiter
	writeLimiter *ratelimit.WriteLimiter

	httpServer *http.Server
	startedAt  time.Time
}

// New assembles a server over the given store. The caller owns the store
// and closes it after Shutdown.
func New(cfg *config.Config, log *slog.Logger, st resource.Store, reset ResetFunc) *Server {
	controllers := make(map[string]*resource.Controller, len(resource.Schemas))
	for _, sch := range resource.Schemas {
		controllers[sch.Name] = resource.NewController(sch, st, log)
	}

	s := &Server{
		cfg:         cfg,
		log:         log,
		reset:       reset,
		controllers: controllers,
		limiter: ratelimit.NewPerIPLimiter(ratelimit.PerIPConfig{
			Rate:       cfg.RateLimit.Rate,
			Burst:      cfg.RateLimit.Burst,
			TrustProxy: cfg.TrustProxy,
		}),
		writeLimiter: ratelimit.NewWriteLimiter(cfg.RateLimit.DailyWrites),
		startedAt:    time.Now(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// router builds the full route tree.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(ratelimit.Middleware(s.limiter))
	r.Use(ratelimit.WriteMiddleware(s.writeLimiter, s.limiter.ClientIP))

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleGlobalSearch)
	r.Post("/admin/reset", s.handleReset)

	// Related-record lookups mirror the parent-scoped list machinery.
	related := map[string][]relatedRoute{
		"users": {
			{"/{id}/posts", resource.Posts, "userId"},
			{"/{id}/todos", resource.Todos, "userId"},
		},
		"posts": {
			{"/{id}/comments", resource.Comments, "postId"},
		},
	}

	for _, sch := range resource.Schemas {
		c := s.controllers[sch.Name]
		r.Route("/"+sch.Name, func(r chi.Router) {
			s.mountResource(r, c)
			for _, rel := range related[sch.Name] {
				r.Get(rel.pattern, s.handleRelated(c, rel.child, rel.fk))
			}
		})
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)
	return r
}

type relatedRoute struct {
	pattern string
	child   *resource.Schema
	fk      string
}

// mountResource registers the generic CRUD and search routes for one
// record type.
func (s *Server) mountResource(r chi.Router, c *resource.Controller) {
	r.Get("/", s.handleList(c))
	r.Post("/", s.handleCreate(c))
	r.Get("/search", s.handleSearch(c))
	r.Get("/{id}", s.handleGet(c))
	r.Put("/{id}", s.handleUpdate(c))
	r.Patch("/{id}", s.handleUpdate(c))
	r.Delete("/{id}", s.handleDelete(c))
}

// Handler exposes the route tree, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.cfg.ListenAddr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.limiter.Stop()
	return err
}
