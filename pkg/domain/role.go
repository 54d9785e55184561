// Package domain holds small cross-cutting domain types shared between
// services, stores, and HTTP-independent packages.
package domain

// Role is the closed set of identity roles.
type Role string

const (
	RolePlayer  Role = "PLAYER"
	RoleCaptain Role = "CAPTAIN"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleCaptain, RoleAdmin:
		return true
	}
	return false
}
