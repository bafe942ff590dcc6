// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// Role represents the authorization tier granted to an account.
type Role string

const (
	// Unrestricted system access, including account administration.
	RoleAdmin Role = "admin"

	// Can review accounts and moderate community content.
	RoleModerator Role = "moderator"

	// Default role for standard registered users.
	RoleUser Role = "user"
)

// # Role Hierarchy

// roleLevels is the total order used for "at least" checks.
//
// Every role a user can hold must appear here. Roles missing from this table
// are treated as invalid and fail every authorization check.
var roleLevels = map[Role]int{
	RoleAdmin:     30,
	RoleModerator: 20,
	RoleUser:      10,
}

// Roles returns every recognized role ordered from the highest level to the lowest.
func Roles() []Role {
	return []Role{RoleAdmin, RoleModerator, RoleUser}
}

// ParseRole converts a raw string into a recognized [Role].
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.Valid()
}

// Valid reports whether the role is a member of the recognized role set.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the hierarchy level of the role. The boolean is false for
// unrecognized roles.
func (r Role) Level() (int, bool) {
	level, ok := roleLevels[r]
	return level, ok
}

// AtLeast checks if the current role meets or exceeds the required target role.
// Unrecognized roles on either side never satisfy the check.
func (r Role) AtLeast(target Role) bool {
	have, ok := r.Level()
	if !ok {
		return false
	}
	want, ok := target.Level()
	if !ok {
		return false
	}
	return have >= want
}

// String implements [fmt.Stringer].
func (r Role) String() string {
	return string(r)
}
