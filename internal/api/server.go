// Package api exposes the reservation engine over HTTP.
//
// Routes:
//
//	POST /api/v1/reservations                 create
//	GET  /api/v1/reservations                 list the caller's reservations
//	GET  /api/v1/reservations/{id}            get
//	GET  /api/v1/reservations/{id}/history    audit trail
//	POST /api/v1/reservations/{id}/resolve    accept or dispute
//	POST /api/v1/reservations/{id}/cancel     cancel
//	POST /api                                 single-endpoint action envelope
//	GET  /healthz                             liveness
//
// The caller's identity is read from a trusted header set by the upstream
// authentication layer; requests without it are rejected with 401.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/gpures/internal/reservation"
)

// DefaultIdentityHeader carries the verified owner id.
const DefaultIdentityHeader = "X-User-ID"

// Service is the engine surface the API needs. Implemented by *engine.Engine.
type Service interface {
	Create(ctx context.Context, req reservation.Request) (reservation.Reservation, error)
	List(ctx context.Context, ownerID string) ([]reservation.Reservation, error)
	Get(ctx context.Context, actor, id string) (reservation.Reservation, error)
	Challenger(ctx context.Context, actor, id string) (reservation.Reservation, error)
	History(ctx context.Context, actor, id string) ([]reservation.Event, error)
	Resolve(ctx context.Context, actor, id string, decision reservation.Decision, key string) (reservation.Reservation, error)
	Cancel(ctx context.Context, actor, id, key string) (reservation.Reservation, error)
}

// Server handles HTTP requests for one engine.
type Server struct {
	svc            Service
	identityHeader string
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithIdentityHeader sets the header that carries the caller's owner id.
func WithIdentityHeader(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.identityHeader = name
		}
	}
}

// WithLogger sets the request logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server over svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		identityHeader: DefaultIdentityHeader,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireIdentity)

		r.Post("/api", s.handleAction)

		r.Route("/api/v1/reservations", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Get("/history", s.handleHistory)
				r.Post("/resolve", s.handleResolve)
				r.Post("/cancel", s.handleCancel)
			})
		})
	})

	return r
}
