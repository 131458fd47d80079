package store

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

func (s *Store) findByEmail(email string) *models.User {
	e := common.NormalizeEmail(email)
	for _, u := range s.doc.Users {
		if u.Email == e {
			return u
		}
	}
	return nil
}

func (s *Store) findByID(id int) *models.User {
	for _, u := range s.doc.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// CreateUser adds a user and persists. An empty role becomes Reader.
//
// When only the upload fails, the user exists in memory and its id is
// returned together with the error.
func (s *Store) CreateUser(ctx context.Context, name, email string, hash []byte, role string, active bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	e := common.NormalizeEmail(email)
	if s.findByEmail(e) != nil {
		return 0, common.ErrDuplicateEmail
	}
	if role == "" {
		role = common.RoleReader
	}

	s.maxID = max(s.maxID, s.doc.MaxUserID()) + 1
	u := &models.User{
		ID:           s.maxID,
		Name:         name,
		Email:        e,
		PasswordHash: append([]byte(nil), hash...),
		Role:         role,
		Active:       active,
		CreatedAt:    s.now().UTC(),
	}
	s.doc.Users = append(s.doc.Users, u)

	return u.ID, s.persist(ctx)
}

// GetUserByEmail looks a user up by normalized email and returns a copy.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)

	u := s.findByEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

// LookupUser is GetUserByEmail for callers that must not mistake an
// unreadable store for a missing user: it returns the load error, wrapping
// common.ErrStoreUnavailable, when the document cannot be fetched.
func (s *Store) LookupUser(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	u := s.findByEmail(email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

// UpdateUser changes the profile fields of user id.
func (s *Store) UpdateUser(ctx context.Context, id int, name, email, role string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	e := common.NormalizeEmail(email)
	if other := s.findByEmail(e); other != nil && other.ID != id {
		return common.ErrDuplicateEmail
	}

	u := s.findByID(id)
	if u == nil {
		return common.ErrorNotFound
	}
	if role == "" {
		role = common.RoleReader
	}

	u.Name = name
	u.Email = e
	u.Role = role
	u.Active = active

	return s.persist(ctx)
}

func (s *Store) UpdatePassword(ctx context.Context, id int, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	u := s.findByID(id)
	if u == nil {
		return common.ErrorNotFound
	}
	u.PasswordHash = append([]byte(nil), hash...)

	return s.persist(ctx)
}

// DeleteUser removes user id. Deleting an unknown id is not an error.
func (s *Store) DeleteUser(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	users := s.doc.Users[:0]
	for _, u := range s.doc.Users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	s.doc.Users = users

	return s.persist(ctx)
}

// ListUsers returns all users, highest id first, without password hashes.
func (s *Store) ListUsers(ctx context.Context) []models.UserView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)

	out := make([]models.UserView, 0, len(s.doc.Users))
	for _, u := range s.doc.Users {
		out = append(out, u.View())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
