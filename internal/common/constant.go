// Package common contains shared constants, helpers and sentinel errors used
// across DataHub components.
package common

// RememberCookieName is the client-side cookie that carries the signed
// remember-me token.
const RememberCookieName = "cuida_sp_auth"

// SessionCookieName is the cookie that carries the server session token.
const SessionCookieName = "datahub_session"

// Default role names. Roles are open strings; only Admin is checked.
const (
	RoleReader   = "Reader"
	RoleOperator = "Operator"
	RoleAdmin    = "Admin"
)
