// Package http exposes the login flow and the user administration API over
// HTTP.
package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/auth"
	"github.com/dmitrijs2005/datahub/internal/server/session"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handler holds the dependencies of every route.
type Handler struct {
	gate     *auth.Gate
	sessions *session.Manager
	store    Store
	log      logging.Logger
	loc      *time.Location
	secure   bool
}

func NewHandler(gate *auth.Gate, sessions *session.Manager, store Store, log logging.Logger, loc *time.Location) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		gate:     gate,
		sessions: sessions,
		store:    store,
		log:      log.With("module", "http"),
		loc:      loc,
	}
}

// SetSecureCookies marks the remember-me cookie Secure.
func (h *Handler) SetSecureCookies(v bool) { h.secure = v }

// NewRouter mounts the API.
//
//	GET    /healthz
//	POST   /api/login
//	POST   /api/logout
//	GET    /api/me
//	GET    /api/admin/users
//	POST   /api/admin/users
//	PUT    /api/admin/users/{id}
//	DELETE /api/admin/users/{id}
//	PUT    /api/admin/users/{id}/password
//	GET    /api/admin/metrics/monthly
//	GET    /api/admin/logs
//	GET    /api/admin/logs/summary
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(h.requestLogging)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.loadSession)

		r.With(chiMiddleware.AllowContentType("application/json")).Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Get("/users", h.ListUsers)
				r.With(chiMiddleware.AllowContentType("application/json")).Post("/users", h.CreateUser)
				r.With(chiMiddleware.AllowContentType("application/json")).Put("/users/{id}", h.UpdateUser)
				r.Delete("/users/{id}", h.DeleteUser)
				r.With(chiMiddleware.AllowContentType("application/json")).Put("/users/{id}/password", h.UpdatePassword)

				r.Get("/metrics/monthly", h.MonthlyMetrics)
				r.Get("/logs", h.Logs)
				r.Get("/logs/summary", h.LogSummary)
			})
		})
	})

	return r
}
