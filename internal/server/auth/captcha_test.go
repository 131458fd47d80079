package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifier_NoSiteKeyAlwaysPasses(t *testing.T) {
	cfg := &config.Config{}
	v := NewVerifier(cfg)
	assert.IsType(t, NopVerifier{}, v)
	assert.NoError(t, v.Verify(context.Background(), "", ""))

	cfg.RecaptchaSiteKey = "site"
	assert.IsType(t, &RecaptchaVerifier{}, NewVerifier(cfg))
}

func TestRecaptchaVerifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		token   string
		wantErr bool
	}{
		{name: "success", status: http.StatusOK, body: `{"success":true}`, token: "tok"},
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error-codes":["invalid-input-response"]}`, token: "tok", wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, token: "tok", wantErr: true},
		{name: "invalid json", status: http.StatusOK, body: `<html>`, token: "tok", wantErr: true},
		{name: "empty token", status: http.StatusOK, body: `{"success":true}`, token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotForm map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				gotForm = map[string]string{
					"secret":   r.PostForm.Get("secret"),
					"response": r.PostForm.Get("response"),
					"remoteip": r.PostForm.Get("remoteip"),
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v := NewRecaptchaVerifier("shh", srv.URL, time.Second)
			err := v.Verify(context.Background(), tt.token, "10.0.0.1")
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrVerificationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"secret": "shh", "response": "tok", "remoteip": "10.0.0.1"}, gotForm)
		})
	}
}

func TestRecaptchaVerifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := NewRecaptchaVerifier("shh", url, time.Second)
	assert.ErrorIs(t, v.Verify(context.Background(), "tok", ""), common.ErrVerificationFailed)
}

func TestRecaptchaVerifier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("shh", srv.URL, 20*time.Millisecond)
	assert.ErrorIs(t, v.Verify(context.Background(), "tok", ""), common.ErrVerificationFailed)
}
