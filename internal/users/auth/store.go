// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Identifiers passed to lookups are already normalized. Mutations take the
// current time explicitly so that every implementation shares one clock.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByIdentifier returns the account whose username or email matches.

		Returns:
		  - *User: Hydrated entity
		  - error: ErrUserNotFound or storage failures
	*/
	FindByIdentifier(context context.Context, identifier string) (*User, error)

	/*
		Create persists a brand-new user account.

		Returns:
		  - error: ErrDuplicateUser when the username or email is taken
	*/
	Create(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Returns:
		  - error: ErrUserNotFound or storage failures
	*/
	UpdatePassword(context context.Context, userID, newHash string, now time.Time) error

	/*
		RecordLoginFailure atomically increments the failure counter.

		Description: When the counter reaches threshold the account is locked
		until now+cooldown. A failure recorded after a previous lock has
		expired starts a fresh count.

		Returns:
		  - *LockoutState: Counter and lock after the increment
		  - error: ErrUserNotFound or storage failures
	*/
	RecordLoginFailure(context context.Context, userID string, threshold int, cooldown time.Duration, now time.Time) (*LockoutState, error)

	/*
		ResetLoginFailures clears the failure counter and any lock.
	*/
	ResetLoginFailures(context context.Context, userID string, now time.Time) error

	/*
		SetActive enables or disables the account.

		Returns:
		  - error: ErrUserNotFound or storage failures
	*/
	SetActive(context context.Context, userID string, active bool, now time.Time) error
}

// # Refresh Token Data Access

// RefreshTokenRepository persists refresh tokens by the digest of their value.
//
// Every method that checks validity and mutates does so in a single atomic
// step, so two concurrent callers can never both observe "valid" and win.
type RefreshTokenRepository interface {

	/*
		Create persists a new active token.
	*/
	Create(context context.Context, token *RefreshToken) error

	/*
		FindActive returns the token only while it is active and unexpired at now.

		Returns:
		  - error: ErrRefreshTokenNotFound for unknown, inactive and expired tokens alike
	*/
	FindActive(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	/*
		Touch sets lastUsedAt on a token that is still valid at now.

		Returns:
		  - error: ErrRefreshTokenNotFound when no valid token matched
	*/
	Touch(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	/*
		Rotate deactivates a valid token and persists its replacement as one unit.

		Returns:
		  - *RefreshToken: The consumed token
		  - error: ErrRefreshTokenNotFound when the old token was no longer valid
	*/
	Rotate(context context.Context, oldTokenHash string, replacement *RefreshToken, now time.Time) (*RefreshToken, error)

	/*
		Revoke deactivates one token.

		Returns:
		  - bool: false when the token was unknown or already inactive
	*/
	Revoke(context context.Context, tokenHash string, now time.Time) (bool, error)

	/*
		RevokeAllForUser deactivates every active token of the user.

		Returns:
		  - int64: Number of tokens deactivated
	*/
	RevokeAllForUser(context context.Context, userID string, now time.Time) (int64, error)

	/*
		ListActiveForUser returns the user's valid tokens, newest first.
	*/
	ListActiveForUser(context context.Context, userID string, now time.Time) ([]RefreshToken, error)

	/*
		DeleteExpired physically removes every token, active or not, that expired before now.

		Returns:
		  - int64: Number of rows deleted
	*/
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// # Volatile Data Access

// ResetTokenRepository stores single-use password reset tokens by digest.
type ResetTokenRepository interface {

	/*
		Save stores a reset token digest for userID with a time to live.
	*/
	Save(context context.Context, tokenHash, userID string, ttl time.Duration) error

	/*
		Consume atomically reads and deletes the digest.

		Returns:
		  - string: The owning user ID
		  - error: ErrResetTokenNotFound when unknown, used or expired
	*/
	Consume(context context.Context, tokenHash string) (string, error)
}
