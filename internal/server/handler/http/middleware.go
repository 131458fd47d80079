package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/session"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithFields(r.Context(), "request_id", id))
		}

		next.ServeHTTP(ww, r)

		h.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// loadSession attaches the server session to the request and, for a signed
// out session, tries the remember-me cookie.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Load(w, r)
		if err != nil {
			h.log.Error(r.Context(), "session load failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if sess.User() == nil {
			if c, err := r.Cookie(common.RememberCookieName); err == nil && c.Value != "" {
				_, clear := h.gate.Bootstrap(r.Context(), &sess.State, c.Value)
				if clear {
					h.clearRememberCookie(w)
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok || sess.User() == nil {
			writeStoreError(w, common.ErrorUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin re-reads the session user so that a demoted or deactivated
// account loses access on its next request.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			writeStoreError(w, common.ErrorUnauthorized)
			return
		}
		u, err := h.gate.Refresh(r.Context(), &sess.State)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if !common.IsAdminRole(u.Role) {
			writeStoreError(w, common.ErrorForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
