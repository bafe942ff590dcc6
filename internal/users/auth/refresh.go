// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/pkg/uuid"
)

// maxGenerateAttempts bounds retries on the astronomically unlikely digest collision.
const maxGenerateAttempts = 3

// RefreshTokenOptions configures a RefreshTokenStore.
type RefreshTokenOptions struct {
	// TTL is the lifetime of a newly generated token.
	TTL time.Duration

	// TokenBytes is the entropy of each value, at least [sec.MinSecureTokenBytes].
	TokenBytes int

	// Entropy defaults to crypto/rand.
	Entropy io.Reader
}

// RefreshTokenStore owns the lifecycle of opaque refresh tokens.
//
// Plaintext values leave the store exactly once, from Generate and Rotate.
// Everything persisted or compared is the SHA-256 digest.
type RefreshTokenStore struct {
	repository RefreshTokenRepository
	options    RefreshTokenOptions
	now        func() time.Time
}

// NewRefreshTokenStore creates a store over the given repository.
func NewRefreshTokenStore(repository RefreshTokenRepository, options RefreshTokenOptions) (*RefreshTokenStore, error) {
	if options.TTL <= 0 {
		return nil, fmt.Errorf("auth: refresh token ttl must be positive, got %s", options.TTL)
	}
	if options.TokenBytes < sec.MinSecureTokenBytes {
		return nil, fmt.Errorf("auth: refresh tokens need at least %d bytes of entropy, got %d", sec.MinSecureTokenBytes, options.TokenBytes)
	}
	if options.Entropy == nil {
		options.Entropy = rand.Reader
	}

	return &RefreshTokenStore{
		repository: repository,
		options:    options,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the store that reads the current time from now.
func (store *RefreshTokenStore) WithClock(now func() time.Time) *RefreshTokenStore {
	clone := *store
	clone.now = now
	return &clone
}

// detach keeps a write running after the caller's context is cancelled,
// bounded by [constants.StoreWriteTimeout].
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), constants.StoreWriteTimeout)
}

// mint builds a new, not yet persisted, token record.
func (store *RefreshTokenStore) mint(userID string, device DeviceInfo, now time.Time) (*RefreshToken, error) {
	value, err := sec.GenerateSecureTokenFrom(store.options.Entropy, store.options.TokenBytes)
	if err != nil {
		return nil, err
	}

	return &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: sec.HashToken(value),
		Value:     value,
		Device:    device,
		IsActive:  true,
		ExpiresAt: now.Add(store.options.TTL),
		CreatedAt: now,
	}, nil
}

/*
Generate creates and persists a new active token for the user.

Returns:
  - *RefreshToken: The persisted record, including the plaintext Value
  - error: Entropy or storage failures
*/
func (store *RefreshTokenStore) Generate(ctx context.Context, userID string, device DeviceInfo) (*RefreshToken, error) {
	writeCtx, cancel := detach(ctx)
	defer cancel()

	for attempt := 1; ; attempt++ {
		token, err := store.mint(userID, device, store.now())
		if err != nil {
			return nil, err
		}

		err = store.repository.Create(writeCtx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrDuplicateRefreshToken) || attempt == maxGenerateAttempts {
			return nil, err
		}
	}
}

/*
FindValid resolves a plaintext value into a token that is active and unexpired.

Returns:
  - *RefreshToken: The stored record, without Value
  - error: ErrRefreshTokenNotFound for empty, unknown, inactive or expired values
*/
func (store *RefreshTokenStore) FindValid(ctx context.Context, value string) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrRefreshTokenNotFound
	}
	return store.repository.FindActive(ctx, sec.HashToken(value), store.now())
}

/*
Touch records a successful use of the token.

Returns:
  - error: ErrRefreshTokenNotFound when the token stopped being valid
*/
func (store *RefreshTokenStore) Touch(ctx context.Context, value string) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrRefreshTokenNotFound
	}

	writeCtx, cancel := detach(ctx)
	defer cancel()

	return store.repository.Touch(writeCtx, sec.HashToken(value), store.now())
}

/*
Rotate consumes a valid token and issues a replacement carrying the same device metadata.

Returns:
  - *RefreshToken: The replacement, including its plaintext Value
  - error: ErrRefreshTokenNotFound when the old value was not valid any more
*/
func (store *RefreshTokenStore) Rotate(ctx context.Context, value string, device DeviceInfo) (*RefreshToken, error) {
	if value == "" {
		return nil, ErrRefreshTokenNotFound
	}

	writeCtx, cancel := detach(ctx)
	defer cancel()

	now := store.now()
	oldHash := sec.HashToken(value)

	current, err := store.repository.FindActive(writeCtx, oldHash, now)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		replacement, err := store.mint(current.UserID, device, now)
		if err != nil {
			return nil, err
		}

		_, err = store.repository.Rotate(writeCtx, oldHash, replacement, now)
		if err == nil {
			return replacement, nil
		}
		if !errors.Is(err, ErrDuplicateRefreshToken) || attempt == maxGenerateAttempts {
			return nil, err
		}
	}
}

/*
Revoke deactivates one token. Unknown or already inactive values are not an error.

Returns:
  - bool: true when this call performed the deactivation
*/
func (store *RefreshTokenStore) Revoke(ctx context.Context, value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	writeCtx, cancel := detach(ctx)
	defer cancel()

	return store.repository.Revoke(writeCtx, sec.HashToken(value), store.now())
}

// RevokeAllForUser deactivates every active token of the user and returns how many were affected.
func (store *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	writeCtx, cancel := detach(ctx)
	defer cancel()

	return store.repository.RevokeAllForUser(writeCtx, userID, store.now())
}

// ListActive returns the user's currently valid tokens, newest first.
func (store *RefreshTokenStore) ListActive(ctx context.Context, userID string) ([]RefreshToken, error) {
	return store.repository.ListActiveForUser(ctx, userID, store.now())
}

// SweepExpired deletes every token, active or not, whose expiry is in the past.
func (store *RefreshTokenStore) SweepExpired(ctx context.Context) (int64, error) {
	return store.repository.DeleteExpired(ctx, store.now())
}

// TTL returns the configured refresh token lifetime.
func (store *RefreshTokenStore) TTL() time.Duration {
	return store.options.TTL
}
