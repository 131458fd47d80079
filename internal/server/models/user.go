package models

import (
	"bytes"
	"time"
)

// User is one account in the document. PasswordHash holds raw bcrypt bytes;
// the codec takes care of the text encoding on the wire.
type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash []byte
	Role         string
	Active       bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	c.PasswordHash = bytes.Clone(u.PasswordHash)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// Public is the projection stored in a session and in remember-me tokens.
func (u *User) Public() PublicUser {
	return PublicUser{Email: u.Email, Name: u.Name, Role: u.Role}
}

// View is the listing projection; it never carries the password hash.
func (u *User) View() UserView {
	v := UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		v.LastLogin = &t
	}
	return v
}

type PublicUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type UserView struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
}
