package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

// UserStore is the part of the user store the gate needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// LookupUser is GetUserByEmail that fails with common.ErrStoreUnavailable
	// instead of reporting a user missing from an unloaded store.
	LookupUser(ctx context.Context, email string) (*models.User, error)
	RecordLogin(ctx context.Context, email string) error
}

// State is the per-session auth state: the signed-in user, if any, and the
// failed-attempt bucket.
type State struct {
	mu     sync.Mutex
	user   *models.PublicUser
	bucket Bucket
}

// User returns a copy of the signed-in user or nil.
func (s *State) User() *models.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *State) SetUser(u models.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// Clear signs the session out. The attempt bucket is kept.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

type LoginRequest struct {
	Email        string
	Password     string
	CaptchaToken string
	RemoteIP     string
	Remember     bool
}

// LoginResult carries the signed-in user and, when requested, the
// remember-me token to set as a cookie.
type LoginResult struct {
	User            models.PublicUser
	RememberToken   string
	RememberExpires time.Time
}

// Gate runs the login flow against a user store.
type Gate struct {
	users    UserStore
	limiter  *RateLimiter
	verifier Verifier
	remember *RememberCodec
	log      logging.Logger
}

func NewGate(users UserStore, limiter *RateLimiter, verifier Verifier, remember *RememberCodec, log logging.Logger) *Gate {
	if verifier == nil {
		verifier = NopVerifier{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Gate{users: users, limiter: limiter, verifier: verifier, remember: remember, log: log}
}

func (g *Gate) Remember() *RememberCodec { return g.remember }

// CheckCredentials validates email and password. On success the login is
// recorded and the public projection returned.
func (g *Gate) CheckCredentials(ctx context.Context, email, password string) (*models.PublicUser, error) {
	u, err := g.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !cryptox.CheckPassword(u.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	if !u.Active {
		return nil, common.ErrInactiveAccount
	}

	if err := g.users.RecordLogin(ctx, u.Email); err != nil {
		g.log.Warn(ctx, "record login failed", "email", u.Email, "error", err)
	}

	p := u.Public()
	return &p, nil
}

// Login runs the full flow for st: rate limit, required fields, human
// check, credentials. Verification failures and bad credentials count
// against the bucket. The attempt is reserved under the state lock before
// any check runs, so concurrent requests on one session cannot exceed the
// limit.
func (g *Gate) Login(ctx context.Context, st *State, req LoginRequest) (*LoginResult, error) {
	st.mu.Lock()
	reserved := g.limiter.Reserve(&st.bucket)
	st.mu.Unlock()
	if !reserved {
		return nil, common.ErrRateLimited
	}

	counted := false
	defer func() {
		if !counted {
			g.release(st)
		}
	}()

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.ErrMissingFields
	}

	if err := g.verifier.Verify(ctx, req.CaptchaToken, req.RemoteIP); err != nil {
		counted = true
		g.log.Info(ctx, "human check failed", "error", err)
		return nil, err
	}

	u, err := g.CheckCredentials(ctx, email, req.Password)
	if err != nil {
		counted = errors.Is(err, common.ErrInvalidCredentials)
		return nil, err
	}

	st.SetUser(*u)
	res := &LoginResult{User: *u}

	if req.Remember && g.remember != nil {
		tok, exp, err := g.remember.Issue(*u)
		if err != nil {
			g.log.Error(ctx, "issue remember token", "error", err)
		} else {
			res.RememberToken, res.RememberExpires = tok, exp
		}
	}

	return res, nil
}

func (g *Gate) release(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g.limiter.Release(&st.bucket)
}

// Refresh re-reads the signed-in user of st from the store and updates the
// session copy. A user that was deleted or deactivated is signed out and
// ErrorUnauthorized returned. When the store cannot be read the session
// copy is kept.
func (g *Gate) Refresh(ctx context.Context, st *State) (*models.PublicUser, error) {
	cur := st.User()
	if cur == nil {
		return nil, common.ErrorUnauthorized
	}

	u, err := g.users.LookupUser(ctx, cur.Email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		st.Clear()
		return nil, common.ErrorUnauthorized
	case err != nil:
		g.log.Warn(ctx, "session user not re-checked", "email", cur.Email, "error", err)
		return cur, nil
	case !u.Active:
		st.Clear()
		return nil, common.ErrorUnauthorized
	}

	pub := u.Public()
	st.SetUser(pub)
	return &pub, nil
}

// Bootstrap restores a signed-out session from a remember-me token. It
// returns the restored user, or nil, and whether the cookie should be
// cleared.
func (g *Gate) Bootstrap(ctx context.Context, st *State, token string) (*models.PublicUser, bool) {
	if u := st.User(); u != nil {
		return u, false
	}
	if token == "" || g.remember == nil {
		return nil, false
	}

	p, err := g.remember.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, true
		}
		g.log.Debug(ctx, "remember token rejected", "error", err)
		return nil, false
	}

	u, err := g.users.GetUserByEmail(ctx, p.Email)
	if err != nil || !u.Active {
		return nil, false
	}

	pub := u.Public()
	st.SetUser(pub)
	return &pub, false
}

// Logout signs st out.
func (g *Gate) Logout(st *State) {
	st.Clear()
}
