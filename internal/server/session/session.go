// Package session keeps server-side sessions in memory. The browser holds
// only a signed token naming the session.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/auth"
	"github.com/google/uuid"
)

// Session is one browser session.
type Session struct {
	auth.State

	ID       string
	lastSeen time.Time
}

// Manager owns the session table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	secret   []byte
	idle     time.Duration
	secure   bool
	now      func() time.Time
	log      logging.Logger
}

// NewManager builds a manager. An empty secret is replaced by random bytes,
// which invalidates outstanding cookies on restart.
func NewManager(secret string, idle time.Duration, log logging.Logger) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = common.GenerateRandByteArray(32)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		secret:   key,
		idle:     idle,
		now:      time.Now,
		log:      log.With("module", "session"),
	}
}

// SetSecure marks issued cookies Secure.
func (m *Manager) SetSecure(v bool) { m.secure = v }

// Load returns the session named by the request cookie, creating a fresh
// one if the cookie is missing, invalid or names an expired session. The
// cookie is re-issued on every call so the idle timeout slides.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	ctx := r.Context()
	var sess *Session

	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		id, err := auth.GetSessionIDFromToken(c.Value, m.secret)
		if err != nil {
			m.log.Debug(ctx, "session token rejected", "error", err)
		} else {
			sess = m.get(id)
		}
	}
	if sess == nil {
		sess = m.create(ctx)
	}

	if err := m.issue(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if now.Sub(s.lastSeen) > m.idle {
		delete(m.sessions, id)
		return nil
	}
	s.lastSeen = now
	return s
}

func (m *Manager) create(ctx context.Context) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	s := &Session{ID: uuid.NewString(), lastSeen: now}
	m.sessions[s.ID] = s
	m.log.Debug(ctx, "session created", "id", s.ID)
	return s
}

// sweep drops idle sessions. Callers hold m.mu.
func (m *Manager) sweep(now time.Time) {
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.idle {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) issue(w http.ResponseWriter, s *Session) error {
	tok, err := auth.GenerateToken(s.ID, m.secret, m.idle)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(m.idle.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
