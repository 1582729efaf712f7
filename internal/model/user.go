// Package model defines domain entities for the application.
package model

// Role is the authorization tier attached to a user and embedded in tokens.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "usuario"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleRegular
}

// String returns the wire value of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts user input into a Role.
// Unrecognized or empty input maps to RoleRegular rather than being rejected,
// so a registration with a misspelled role silently gets the regular tier.
func ParseRole(s string) Role {
	r := Role(s)
	if r.IsValid() {
		return r
	}
	return RoleRegular
}

// User is an account that can authenticate against the API.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never serialize
	Role         Role   `json:"rol"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
