package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const minPasswordLen = 8

// Store is the user store as seen by the admin routes.
type Store interface {
	ListUsers(ctx context.Context) []models.UserView
	CreateUser(ctx context.Context, name, email string, hash []byte, role string, active bool) (int, error)
	UpdateUser(ctx context.Context, id int, name, email, role string, active bool) error
	UpdatePassword(ctx context.Context, id int, hash []byte) error
	DeleteUser(ctx context.Context, id int) error
	MonthAccessCount(ctx context.Context, year, month int) int
	RecentLogs(ctx context.Context, days int) []models.AccessLog
	AccessSummary(ctx context.Context, days int, group string, loc *time.Location) (models.AccessSummary, error)
	Settings(ctx context.Context) models.LogSettings
}

type userRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Active   *bool  `json:"active"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type createdResponse struct {
	ID int `json:"id"`
}

type monthlyResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

func hashNewPassword(p string) ([]byte, error) {
	if len(p) < minPasswordLen {
		return nil, common.ErrPasswordTooShort
	}
	return cryptox.HashPassword(p)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, key string) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListUsers(r.Context()))
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	hash, err := hashNewPassword(req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	active := req.Active == nil || *req.Active
	id, err := h.store.CreateUser(r.Context(), strings.TrimSpace(req.Name), req.Email, hash, strings.TrimSpace(req.Role), active)
	if err != nil {
		h.log.Warn(r.Context(), "create user failed", "email", common.NormalizeEmail(req.Email), "id", id, "error", err)
		writeStoreError(w, err)
		return
	}

	h.log.Info(r.Context(), "user created", "id", id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	active := req.Active == nil || *req.Active
	if err := h.store.UpdateUser(r.Context(), id, strings.TrimSpace(req.Name), req.Email, strings.TrimSpace(req.Role), active); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	hash, err := hashNewPassword(req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), id, hash); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MonthlyMetrics returns the login count of one UTC month, the current one
// when year or month is omitted.
func (h *Handler) MonthlyMetrics(w http.ResponseWriter, r *http.Request) {
	year, ok1 := queryInt(r, "year")
	month, ok2 := queryInt(r, "month")
	if !ok1 || !ok2 || month < 0 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}

	now := time.Now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	writeJSON(w, http.StatusOK, monthlyResponse{
		Year:  year,
		Month: month,
		Count: h.store.MonthAccessCount(r.Context(), year, month),
	})
}

// Logs returns recent access events, newest first, capped at the
// configured table size.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	days, ok1 := queryInt(r, "days")
	limit, ok2 := queryInt(r, "limit")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid days or limit")
		return
	}

	rows := h.store.Settings(r.Context()).MaxTableRows
	if limit <= 0 || limit > rows {
		limit = rows
	}

	logs := h.store.RecentLogs(r.Context(), days)
	if len(logs) > limit {
		logs = logs[:limit]
	}
	if logs == nil {
		logs = []models.AccessLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) LogSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid days")
		return
	}
	group := r.URL.Query().Get("group")
	if group == "" {
		group = models.GroupDay
	}

	sum, err := h.store.AccessSummary(r.Context(), days, group, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
