package store

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

// Init loads the document and, when admin carries both an email and a
// password and no such user exists, creates it. The result only describes
// what happened; Init never fails.
func (s *Store) Init(ctx context.Context, admin config.BootstrapAdmin) models.BootstrapResult {
	s.mu.Lock()
	err := s.ensureLoaded(ctx)
	s.mu.Unlock()

	res := models.BootstrapResult{Email: common.NormalizeEmail(admin.Email)}
	if res.Email == "" || admin.Password == "" {
		res.Err = err
		return res
	}
	res.Attempted = true
	if err != nil {
		res.Err = err
		return res
	}

	if u, err := s.GetUserByEmail(ctx, res.Email); err == nil {
		res.UserID = u.ID
		return res
	}

	hash, err := cryptox.HashPassword(admin.Password)
	if err != nil {
		res.Err = err
		return res
	}

	name := admin.Name
	if name == "" {
		name = "Admin"
	}
	role := admin.Role
	if role == "" {
		role = common.RoleAdmin
	}

	id, err := s.CreateUser(ctx, name, res.Email, hash, role, true)
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		return res
	case id != 0:
		res.Created = true
		res.UserID = id
	}
	res.Err = err
	return res
}
