package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/netx"
	"github.com/dmitrijs2005/datahub/internal/server/config"
)

// Verifier checks a human-check token. It returns nil on success and an
// error wrapping common.ErrVerificationFailed otherwise.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// NopVerifier accepts every token. It is used when no site key is
// configured.
type NopVerifier struct{}

func (NopVerifier) Verify(context.Context, string, string) error { return nil }

// RecaptchaVerifier calls a reCAPTCHA siteverify endpoint. It fails closed:
// network errors, non-200 answers and unreadable bodies all reject.
type RecaptchaVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewRecaptchaVerifier(secret, endpoint string, timeout time.Duration) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewVerifier picks the verifier for cfg.
func NewVerifier(cfg *config.Config) Verifier {
	if cfg.RecaptchaSiteKey == "" {
		return NopVerifier{}
	}
	return NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.RecaptchaTimeout)
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return fmt.Errorf("%w: missing token", common.ErrVerificationFailed)
	}

	form := url.Values{"secret": {v.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	body, err := netx.PostForm(ctx, v.client, v.endpoint, form)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrVerificationFailed, err)
	}

	var resp siteVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %w", common.ErrVerificationFailed, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: rejected %v", common.ErrVerificationFailed, resp.ErrorCodes)
	}
	return nil
}
