// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "sort"

// Permission names a single capability granted through a role.
type Permission string

const (
	PermProfileRead       Permission = "profile:read"
	PermProfileUpdate     Permission = "profile:update"
	PermSessionsRead      Permission = "sessions:read"
	PermSessionsRevoke    Permission = "sessions:revoke"
	PermUsersRead         Permission = "users:read"
	PermContentModerate   Permission = "content:moderate"
	PermSessionsReadAny   Permission = "sessions:read:any"
	PermSessionsRevokeAny Permission = "sessions:revoke:any"
	PermUsersManage       Permission = "users:manage"
	PermRolesAssign       Permission = "roles:assign"
)

// # Role to Permission Table

var (
	userPermissions = []Permission{
		PermProfileRead,
		PermProfileUpdate,
		PermSessionsRead,
		PermSessionsRevoke,
	}

	moderatorPermissions = append(append([]Permission{}, userPermissions...),
		PermUsersRead,
		PermContentModerate,
	)

	adminPermissions = append(append([]Permission{}, moderatorPermissions...),
		PermSessionsReadAny,
		PermSessionsRevokeAny,
		PermUsersManage,
		PermRolesAssign,
	)

	// rolePermissions is static data. Callers only ever receive copies.
	rolePermissions = map[Role][]Permission{
		RoleUser:      userPermissions,
		RoleModerator: moderatorPermissions,
		RoleAdmin:     adminPermissions,
	}
)

// PermissionSet is an unordered collection of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(permissions ...Permission) PermissionSet {
	set := make(PermissionSet, len(permissions))
	for _, permission := range permissions {
		set[permission] = struct{}{}
	}
	return set
}

// ParsePermissionSet builds a set from raw permission strings, such as those
// embedded in token claims.
func ParsePermissionSet(raw []string) PermissionSet {
	set := make(PermissionSet, len(raw))
	for _, value := range raw {
		set[Permission(value)] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(permission Permission) bool {
	_, ok := s[permission]
	return ok
}

// HasAll reports whether the set contains every one of the permissions.
// An empty requirement is trivially satisfied.
func (s PermissionSet) HasAll(permissions ...Permission) bool {
	for _, permission := range permissions {
		if !s.Has(permission) {
			return false
		}
	}
	return true
}

// Strings returns the permissions as a sorted slice of strings.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for permission := range s {
		out = append(out, string(permission))
	}
	sort.Strings(out)
	return out
}

// PermissionsFor resolves the permission set granted to a role.
// The boolean is false when the role has no entry in the table.
func PermissionsFor(role Role) (PermissionSet, bool) {
	permissions, ok := rolePermissions[role]
	if !ok {
		return nil, false
	}
	return NewPermissionSet(permissions...), true
}
