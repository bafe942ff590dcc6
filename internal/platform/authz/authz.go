// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package authz implements the authorization engine.
//
// # Architecture
//
// Every check is a pure function over claims that have already been verified
// by the token codec. Nothing here touches a store, a clock, or a signature.
// Four mechanisms are offered:
//
//   - Hierarchy: the caller's role level is at least the required level.
//   - Allow-list: the caller's role is one of an exact set, with no inheritance.
//   - Permission: the caller holds every one of the required permissions.
//   - Ownership: the caller owns the resource or is an administrator.
//
// Unknown roles fail closed in every mechanism.
package authz

import (
	"errors"
	"fmt"

	"github.com/taibuivan/gatekeep/internal/platform/sec"
)

var (
	// ErrInvalidRole is returned when the caller holds a role missing from the role table.
	ErrInvalidRole = errors.New("authz: invalid role")

	// ErrForbidden is returned when a recognized caller lacks the required privilege.
	ErrForbidden = errors.New("authz: forbidden")
)

// Subject is the minimal view of a verified caller needed to authorize a request.
type Subject struct {
	UserID      string
	Role        sec.Role
	Permissions sec.PermissionSet
}

// NewSubject builds a subject from verified claims.
//
// When the token carries no embedded permissions they are recomputed from the
// role table, so a freshly changed table takes effect immediately.
func NewSubject(claims *sec.AuthClaims) Subject {
	role := sec.Role(claims.Role)

	var permissions sec.PermissionSet
	if len(claims.Permissions) > 0 {
		permissions = sec.ParsePermissionSet(claims.Permissions)
	} else if resolved, ok := sec.PermissionsFor(role); ok {
		permissions = resolved
	}

	return Subject{
		UserID:      claims.UserID,
		Role:        role,
		Permissions: permissions,
	}
}

// # Pure Checks

// HasMinimumRole reports whether userRole sits at or above requiredRole in the hierarchy.
func HasMinimumRole(userRole, requiredRole sec.Role) bool {
	return userRole.AtLeast(requiredRole)
}

// IsRoleAllowed reports whether userRole is a recognized member of allowed.
func IsRoleAllowed(userRole sec.Role, allowed ...sec.Role) bool {
	if !userRole.Valid() {
		return false
	}
	for _, role := range allowed {
		if role == userRole {
			return true
		}
	}
	return false
}

// HasPermission reports whether granted contains every required permission.
func HasPermission(granted sec.PermissionSet, required ...sec.Permission) bool {
	return granted.HasAll(required...)
}

// IsOwnerOrElevated allows the resource owner or anyone holding the admin role.
func IsOwnerOrElevated(requesterID string, requesterRole sec.Role, ownerID string) bool {
	if !requesterRole.Valid() {
		return false
	}
	if requesterID != "" && requesterID == ownerID {
		return true
	}
	return HasMinimumRole(requesterRole, sec.RoleAdmin)
}

// # Enforcement

// EnsureMinimumRole returns nil when the subject satisfies the hierarchy check.
func EnsureMinimumRole(subject Subject, required sec.Role) error {
	if !subject.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, subject.Role)
	}
	if !HasMinimumRole(subject.Role, required) {
		return fmt.Errorf("%w: requires role %s or above", ErrForbidden, required)
	}
	return nil
}

// EnsureRoleAllowed returns nil when the subject's role is one of allowed.
func EnsureRoleAllowed(subject Subject, allowed ...sec.Role) error {
	if !subject.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, subject.Role)
	}
	if !IsRoleAllowed(subject.Role, allowed...) {
		return fmt.Errorf("%w: role %s is not allowed", ErrForbidden, subject.Role)
	}
	return nil
}

// EnsurePermission returns nil when the subject holds every required permission.
func EnsurePermission(subject Subject, required ...sec.Permission) error {
	if !subject.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, subject.Role)
	}
	if !HasPermission(subject.Permissions, required...) {
		return fmt.Errorf("%w: missing required permission", ErrForbidden)
	}
	return nil
}

// EnsureOwnerOrElevated returns nil when the subject owns the resource or is an admin.
func EnsureOwnerOrElevated(subject Subject, ownerID string) error {
	if !subject.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, subject.Role)
	}
	if !IsOwnerOrElevated(subject.UserID, subject.Role, ownerID) {
		return fmt.Errorf("%w: not the resource owner", ErrForbidden)
	}
	return nil
}
