package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

// RememberPayload is the content of the remember-me cookie. Field names and
// order are part of the cookie format.
type RememberPayload struct {
	Email     string `json:"email"`
	Name      string `json:"nome"`
	Role      string `json:"papel"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// RememberCodec issues and verifies remember-me tokens.
//
// The token is URL-safe base64 of the compact JSON payload, followed, when a
// signing key is configured, by "." and the raw HMAC-SHA256 of the payload.
// Without a key tokens are accepted unsigned.
type RememberCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewRememberCodec(signKey string, ttl time.Duration) *RememberCodec {
	var key []byte
	if signKey != "" {
		key = []byte(signKey)
	}
	return &RememberCodec{key: key, ttl: ttl, now: time.Now}
}

// Signed reports whether tokens carry a MAC.
func (c *RememberCodec) Signed() bool { return c.key != nil }

func (c *RememberCodec) TTL() time.Duration { return c.ttl }

func (c *RememberCodec) mac(msg []byte) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write(msg)
	return h.Sum(nil)
}

// Issue builds a token for u and returns it with its expiry.
func (c *RememberCodec) Issue(u models.PublicUser) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl)
	payload := RememberPayload{
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", time.Time{}, err
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	if c.Signed() {
		raw = append(append(raw, '.'), c.mac(raw)...)
	}

	return base64.URLEncoding.EncodeToString(raw), exp, nil
}

// Verify decodes token. A bad encoding or signature yields
// common.ErrInvalidToken; a payload past its exp yields
// common.ErrTokenExpired.
func (c *RememberCodec) Verify(token string) (*RememberPayload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		if raw, err = base64.RawURLEncoding.DecodeString(token); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
		}
	}

	msg := raw
	if c.Signed() {
		// the MAC is binary and may itself contain '.', so split at a fixed offset
		cut := len(raw) - sha256.Size - 1
		if cut < 0 || raw[cut] != '.' {
			return nil, common.ErrInvalidToken
		}
		msg = raw[:cut]
		if !hmac.Equal(raw[cut+1:], c.mac(msg)) {
			return nil, common.ErrInvalidToken
		}
	}

	var p RememberPayload
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if p.Email == "" {
		return nil, common.ErrInvalidToken
	}
	if c.now().Unix() >= p.ExpiresAt {
		return nil, common.ErrTokenExpired
	}
	return &p, nil
}
