package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/datahub/internal/common"
)

// Messages shown to the browser. Invalid credentials and failed human
// checks share one message.
const (
	msgLoginFailed  = "invalid email or password"
	msgInactive     = "account is inactive"
	msgRateLimited  = "too many attempts, try again later"
	msgMissing      = "email and password are required"
	msgKeptInMemory = "storage unavailable, change kept in memory"
	msgNotSaved     = "storage unavailable, change not saved"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps a sentinel error to a response.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrVerificationFailed):
		writeError(w, http.StatusUnauthorized, msgLoginFailed)
	case errors.Is(err, common.ErrInactiveAccount):
		writeError(w, http.StatusForbidden, msgInactive)
	case errors.Is(err, common.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, common.ErrMissingFields):
		writeError(w, http.StatusBadRequest, msgMissing)
	case errors.Is(err, common.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, common.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, msgNotSaved)
	case errors.Is(err, common.ErrTransportFailure):
		writeError(w, http.StatusServiceUnavailable, msgKeptInMemory)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
