package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var remUser = models.PublicUser{Email: "ana@x.com", Name: "Ana <Ops>", Role: "Admin"}

func fixedCodec(key string, at time.Time) *RememberCodec {
	c := NewRememberCodec(key, 14*24*time.Hour)
	c.now = func() time.Time { return at }
	return c
}

func TestRemember_IssueVerifySigned(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := fixedCodec("sign-key", now)
	require.True(t, c.Signed())

	tok, exp, err := c.Issue(remUser)
	require.NoError(t, err)
	assert.Equal(t, now.Add(14*24*time.Hour), exp)

	p, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, &RememberPayload{
		Email:     "ana@x.com",
		Name:      "Ana <Ops>",
		Role:      "Admin",
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
	}, p)
}

func TestRemember_PayloadLayout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := fixedCodec("", now)

	tok, _, err := c.Issue(remUser)
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t,
		`{"email":"ana@x.com","nome":"Ana <Ops>","papel":"Admin","iat":1700000000,"exp":1701209600}`,
		string(raw))
}

func TestRemember_UnsignedAcceptedWithoutKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := fixedCodec("", now)
	assert.False(t, c.Signed())

	raw, err := json.Marshal(RememberPayload{Email: "b@x.com", ExpiresAt: now.Unix() + 60})
	require.NoError(t, err)

	p, err := c.Verify(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", p.Email)
}

func TestRemember_Tampered(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := fixedCodec("sign-key", now)

	tok, _, err := c.Issue(remUser)
	require.NoError(t, err)
	raw, err := base64.URLEncoding.DecodeString(tok)
	require.NoError(t, err)

	forged := []byte(strings.Replace(string(raw), `"papel":"Admin"`, `"papel":"Root!"`, 1))
	_, err = c.Verify(base64.URLEncoding.EncodeToString(forged))
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	other := fixedCodec("other-key", now)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	// unsigned tokens are refused once a key is configured
	plain, _, err := fixedCodec("", now).Issue(remUser)
	require.NoError(t, err)
	_, err = c.Verify(plain)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRemember_Garbage(t *testing.T) {
	c := fixedCodec("k", time.Now())
	for _, tok := range []string{"", "%%%", "YWJj", base64.URLEncoding.EncodeToString([]byte("x"))} {
		_, err := c.Verify(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestRemember_Expired(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	c := fixedCodec("k", issued)
	tok, exp, err := c.Issue(remUser)
	require.NoError(t, err)

	c.now = func() time.Time { return exp.Add(-time.Second) }
	_, err = c.Verify(tok)
	require.NoError(t, err)

	c.now = func() time.Time { return exp }
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}
