package models

import "strings"

// Role gates which views and operations a session may reach.
type Role string

const (
	RoleInvestor Role = "investor"
	RoleAnalyst  Role = "analyst"
)

// ParseRole normalizes a role string. Unknown values return ok=false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleInvestor:
		return RoleInvestor, true
	case RoleAnalyst:
		return RoleAnalyst, true
	}
	return "", false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Session is the authenticated identity. It exists from a successful login
// until logout; the zero value is "not authenticated".
type Session struct {
	Token string `json:"access_token"`
	Role  Role   `json:"role"`
}

// Authenticated requires both a token and a known role.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Role.Valid()
}
