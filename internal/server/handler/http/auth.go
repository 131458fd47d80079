package http

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/auth"
	"github.com/dmitrijs2005/datahub/internal/server/session"
)

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
	Remember     bool   `json:"remember"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login runs the login flow for the request session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	sess, _ := session.FromContext(r.Context())
	res, err := h.gate.Login(r.Context(), &sess.State, auth.LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     remoteIP(r),
		Remember:     req.Remember,
	})
	if err != nil {
		h.log.Info(r.Context(), "login rejected", "email", common.NormalizeEmail(req.Email), "error", err)
		writeStoreError(w, err)
		return
	}

	if res.RememberToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     common.RememberCookieName,
			Value:    res.RememberToken,
			Path:     "/",
			Expires:  res.RememberExpires,
			MaxAge:   int(h.gate.Remember().TTL().Seconds()),
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	h.log.Info(r.Context(), "login", "email", res.User.Email)
	writeJSON(w, http.StatusOK, res.User)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	h.gate.Logout(&sess.State)
	h.clearRememberCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess.User())
}

func (h *Handler) clearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
