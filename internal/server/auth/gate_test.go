package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	users     map[string]*models.User
	logins    []string
	recordErr error
	lookupErr error
}

func newFakeUsers(t *testing.T) *fakeUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeUsers{users: map[string]*models.User{
		"ana@x.com": {ID: 1, Name: "Ana", Email: "ana@x.com", PasswordHash: hash, Role: "Admin", Active: true},
		"bob@x.com": {ID: 2, Name: "Bob", Email: "bob@x.com", PasswordHash: hash, Role: "Reader", Active: false},
	}}
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[common.NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

func (f *fakeUsers) LookupUser(ctx context.Context, email string) (*models.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.GetUserByEmail(ctx, email)
}

func (f *fakeUsers) RecordLogin(_ context.Context, email string) error {
	f.logins = append(f.logins, email)
	return f.recordErr
}

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(context.Context, string, string) error {
	s.calls++
	return s.err
}

func newTestGate(users UserStore, v Verifier, max int) *Gate {
	return NewGate(users, NewRateLimiter(max, 15*time.Minute), v, NewRememberCodec("k", 14*24*time.Hour), logging.Nop())
}

func TestCheckCredentials(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t)
	g := newTestGate(users, nil, 5)

	u, err := g.CheckCredentials(ctx, "ANA@x.com ", "password1")
	require.NoError(t, err)
	assert.Equal(t, &models.PublicUser{Email: "ana@x.com", Name: "Ana", Role: "Admin"}, u)
	assert.Equal(t, []string{"ana@x.com"}, users.logins)

	_, err = g.CheckCredentials(ctx, "ana@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = g.CheckCredentials(ctx, "nobody@x.com", "password1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = g.CheckCredentials(ctx, "bob@x.com", "password1")
	assert.ErrorIs(t, err, common.ErrInactiveAccount)

	assert.Len(t, users.logins, 1)
}

func TestCheckCredentials_RecordFailureIsNotFatal(t *testing.T) {
	users := newFakeUsers(t)
	users.recordErr = fmt.Errorf("%w: down", common.ErrTransportFailure)
	g := newTestGate(users, nil, 5)

	u, err := g.CheckCredentials(context.Background(), "ana@x.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", u.Email)
}

func TestLogin_Success(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 5)
	st := &State{}

	res, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Empty(t, res.RememberToken)
	assert.Equal(t, &res.User, st.User())
}

func TestLogin_RememberIssuesToken(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 5)

	res, err := g.Login(context.Background(), &State{}, LoginRequest{Email: "ana@x.com", Password: "password1", Remember: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.RememberToken)

	p, err := g.Remember().Verify(res.RememberToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", p.Email)
	assert.Equal(t, res.RememberExpires.Unix(), p.ExpiresAt)
}

func TestLogin_MissingFieldsDoNotCount(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 1)
	st := &State{}

	for i := 0; i < 3; i++ {
		_, err := g.Login(context.Background(), st, LoginRequest{Email: "  ", Password: "x"})
		assert.ErrorIs(t, err, common.ErrMissingFields)
	}
	_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestLogin_RateLimitedAfterFailures(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t)
	g := newTestGate(users, nil, 5)
	st := &State{}

	for i := 0; i < 5; i++ {
		_, err := g.Login(ctx, st, LoginRequest{Email: "ana@x.com", Password: "bad"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	}

	_, err := g.Login(ctx, st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Nil(t, st.User())
	assert.Empty(t, users.logins)

	// a fresh session has its own bucket
	_, err = g.Login(ctx, &State{}, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestLogin_WindowExpiryUnlocks(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := newTestGate(newFakeUsers(t), nil, 1)
	g.limiter.now = func() time.Time { return now }
	st := &State{}

	_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "bad"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.ErrorIs(t, err, common.ErrRateLimited)

	now = now.Add(16 * time.Minute)
	_, err = g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestLogin_VerificationFailureCounts(t *testing.T) {
	v := &stubVerifier{err: fmt.Errorf("%w: nope", common.ErrVerificationFailed)}
	users := newFakeUsers(t)
	g := newTestGate(users, v, 2)
	st := &State{}

	for i := 0; i < 2; i++ {
		_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
		assert.ErrorIs(t, err, common.ErrVerificationFailed)
	}
	assert.Empty(t, users.logins)

	v.err = nil
	_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Equal(t, 2, v.calls)
}

func TestLogin_InactiveDoesNotCount(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 1)
	st := &State{}

	for i := 0; i < 3; i++ {
		_, err := g.Login(context.Background(), st, LoginRequest{Email: "bob@x.com", Password: "password1"})
		assert.ErrorIs(t, err, common.ErrInactiveAccount)
	}
	assert.Equal(t, 0, st.bucket.Count)
}

func TestLogin_SuccessDoesNotResetBucket(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 5)
	st := &State{}

	_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "bad"})
	require.Error(t, err)
	_, err = g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, 1, st.bucket.Count)
}

func TestLogin_StoreErrorPropagates(t *testing.T) {
	g := newTestGate(errUsers{}, nil, 5)
	_, err := g.Login(context.Background(), &State{}, LoginRequest{Email: "a@x.com", Password: "p"})
	assert.ErrorIs(t, err, common.ErrTransportFailure)
}

type errUsers struct{}

func (errUsers) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, fmt.Errorf("%w: unreachable", common.ErrTransportFailure)
}
func (errUsers) LookupUser(ctx context.Context, email string) (*models.User, error) {
	return errUsers{}.GetUserByEmail(ctx, email)
}
func (errUsers) RecordLogin(context.Context, string) error { return errors.New("unused") }

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t)
	g := newTestGate(users, nil, 5)

	tok, _, err := g.Remember().Issue(models.PublicUser{Email: "ana@x.com", Name: "Old", Role: "Reader"})
	require.NoError(t, err)

	st := &State{}
	u, clear := g.Bootstrap(ctx, st, tok)
	require.NotNil(t, u)
	assert.False(t, clear)
	// the projection comes from the current record, not the token
	assert.Equal(t, models.PublicUser{Email: "ana@x.com", Name: "Ana", Role: "Admin"}, *u)
	assert.Equal(t, u, st.User())
	assert.Empty(t, users.logins)
}

func TestBootstrap_Rejections(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t)
	g := newTestGate(users, nil, 5)

	issue := func(email string) string {
		tok, _, err := g.Remember().Issue(models.PublicUser{Email: email})
		require.NoError(t, err)
		return tok
	}

	u, clear := g.Bootstrap(ctx, &State{}, "")
	assert.Nil(t, u)
	assert.False(t, clear)

	u, clear = g.Bootstrap(ctx, &State{}, "garbage")
	assert.Nil(t, u)
	assert.False(t, clear)

	u, _ = g.Bootstrap(ctx, &State{}, issue("bob@x.com"))
	assert.Nil(t, u, "inactive user")

	u, _ = g.Bootstrap(ctx, &State{}, issue("gone@x.com"))
	assert.Nil(t, u, "deleted user")

	expired := issue("ana@x.com")
	g.remember.now = func() time.Time { return time.Now().Add(15 * 24 * time.Hour) }
	u, clear = g.Bootstrap(ctx, &State{}, expired)
	assert.Nil(t, u)
	assert.True(t, clear)
}

func TestBootstrap_KeepsSignedInUser(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 5)
	st := &State{}
	st.SetUser(models.PublicUser{Email: "ana@x.com"})

	u, clear := g.Bootstrap(context.Background(), st, "garbage")
	require.NotNil(t, u)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.False(t, clear)
}

func TestLogout(t *testing.T) {
	g := newTestGate(newFakeUsers(t), nil, 5)
	st := &State{}
	_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
	require.NoError(t, err)

	g.Logout(st)
	assert.Nil(t, st.User())
}

type blockingVerifier struct {
	release chan struct{}
	calls   atomic.Int32
}

func (v *blockingVerifier) Verify(context.Context, string, string) error {
	v.calls.Add(1)
	<-v.release
	return common.ErrVerificationFailed
}

func TestLogin_ConcurrentAttemptsRespectLimit(t *testing.T) {
	v := &blockingVerifier{release: make(chan struct{})}
	g := newTestGate(newFakeUsers(t), v, 3)
	st := &State{}

	const attempts = 10
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Login(context.Background(), st, LoginRequest{Email: "ana@x.com", Password: "password1"})
			errs <- err
		}()
	}

	// attempts over the limit return without reaching the verifier
	for i := 0; i < attempts-3; i++ {
		assert.ErrorIs(t, <-errs, common.ErrRateLimited)
	}
	close(v.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, common.ErrVerificationFailed)
	}
	assert.Equal(t, int32(3), v.calls.Load())
	assert.Equal(t, 3, st.bucket.Count)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t)
	g := newTestGate(users, nil, 5)

	_, err := g.Refresh(ctx, &State{})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	st := &State{}
	st.SetUser(models.PublicUser{Email: "ana@x.com", Name: "Ana", Role: "Admin"})

	users.users["ana@x.com"].Role = "Reader"
	u, err := g.Refresh(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, "Reader", u.Role)
	assert.Equal(t, "Reader", st.User().Role)

	users.lookupErr = fmt.Errorf("%w: offline", common.ErrStoreUnavailable)
	users.users["ana@x.com"].Active = false
	u, err = g.Refresh(ctx, st)
	require.NoError(t, err, "unreadable store keeps the session copy")
	assert.Equal(t, "Reader", u.Role)

	users.lookupErr = nil
	_, err = g.Refresh(ctx, st)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Nil(t, st.User(), "deactivated user is signed out")

	st.SetUser(models.PublicUser{Email: "gone@x.com"})
	_, err = g.Refresh(ctx, st)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Nil(t, st.User())
}
