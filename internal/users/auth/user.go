// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, RefreshToken) and the logic for
authentication, refresh token lifecycle, and account administration.

# Architecture

  - Entities: User and RefreshToken, plus the client-facing views derived from them.
  - Repositories: Storage contracts with PostgreSQL, Redis and in-memory implementations.
  - AccessTokenIssuer: Builds short-lived signed tokens from a user record.
  - RefreshTokenStore: Issues, validates, rotates and revokes opaque refresh tokens.
  - Service: Orchestrates login, refresh, logout and the account use cases.
  - Handler: The chi HTTP surface.
*/
package auth

import (
	"errors"
	"time"

	"github.com/taibuivan/gatekeep/internal/platform/sec"
)

// # Domain Errors

// Typed failures raised by repositories and the token store. The service maps
// each one to exactly one client-facing error.
var (
	ErrUserNotFound          = errors.New("auth: user not found")
	ErrDuplicateUser         = errors.New("auth: username or email already registered")
	ErrRefreshTokenNotFound  = errors.New("auth: refresh token not found")
	ErrDuplicateRefreshToken = errors.New("auth: refresh token value already exists")
	ErrResetTokenNotFound    = errors.New("auth: reset token not found")
	ErrUnknownRole           = errors.New("auth: role has no entry in the role table")
)

// # Domain Entities

// User represents a registered account.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	Role                sec.Role
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is inside its lockout window at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockoutRemaining returns how long the lockout window still lasts at now.
func (u *User) LockoutRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockedUntil.Sub(now)
}

// LockoutState is the outcome of recording a failed login.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// DeviceInfo is metadata about the client holding a refresh token.
// It is recorded for display and auditing only, never for authorization.
type DeviceInfo struct {
	UserAgent   string
	IPAddress   string
	DeviceClass DeviceClass
}

// RefreshToken is a persisted, opaque, long-lived credential.
//
// Only the SHA-256 digest of the value is stored. Value holds the plaintext
// and is populated exactly once, on the record returned at creation.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	Value      string
	Device     DeviceInfo
	IsActive   bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// ValidAt reports whether the token may be accepted at now.
func (t *RefreshToken) ValidAt(now time.Time) bool {
	return t.IsActive && t.ExpiresAt.After(now)
}

// # Views

// UserView is the sanitized representation of a user returned to clients.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      sec.Role  `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// View projects the user onto its client-safe representation.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// SessionView describes one active refresh token without exposing its value.
type SessionView struct {
	ID          string      `json:"id"`
	UserAgent   string      `json:"userAgent"`
	IPAddress   string      `json:"ipAddress"`
	DeviceClass DeviceClass `json:"deviceClass"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastUsedAt  *time.Time  `json:"lastUsedAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// View projects the token onto its client-safe representation.
func (t *RefreshToken) View() SessionView {
	return SessionView{
		ID:          t.ID,
		UserAgent:   t.Device.UserAgent,
		IPAddress:   t.Device.IPAddress,
		DeviceClass: t.Device.DeviceClass,
		CreatedAt:   t.CreatedAt,
		LastUsedAt:  t.LastUsedAt,
		ExpiresAt:   t.ExpiresAt,
	}
}

// ProfileView is the claims view returned by the profile endpoint.
type ProfileView struct {
	UserID      string    `json:"userId"`
	Identifier  string    `json:"identifier"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldIdentifier      = "identifier"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldRefreshToken    = "refreshToken"
	FieldToken           = "token"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldUserID          = "userID"
)
