// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/users/auth"
	"github.com/taibuivan/gatekeep/pkg/uuid"
)

// repositories is one storage backend under test.
type repositories struct {
	users  auth.UserRepository
	tokens auth.RefreshTokenRepository
}

// openRepositories returns empty repositories for a single subtest.
type openRepositories func(t *testing.T) repositories

// contractEpoch is microsecond aligned so PostgreSQL round-trips it exactly.
var contractEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func contractUser(username string) *auth.User {
	return &auth.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$contract.hash",
		Role:         sec.RoleUser,
		IsActive:     true,
		CreatedAt:    contractEpoch,
		UpdatedAt:    contractEpoch,
	}
}

func contractToken(userID, value string, createdAt, expiresAt time.Time) *auth.RefreshToken {
	return &auth.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: sec.HashToken(value),
		Device:    auth.NewDeviceInfo("Mozilla/5.0 (X11; Linux x86_64)", "203.0.113.7"),
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

// assertInstant compares instants, ignoring the location a driver decodes into.
func assertInstant(t *testing.T, expected time.Time, actual *time.Time) {
	t.Helper()
	require.NotNil(t, actual)
	assert.True(t, expected.Equal(*actual), "expected %s, got %s", expected, *actual)
}

/*
testRepositoryContract runs the behaviour every storage backend must share.

Each subtest receives empty repositories from open.
*/
func testRepositoryContract(t *testing.T, open openRepositories) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, open(t)) })
	t.Run("Lockout", func(t *testing.T) { testLockout(t, open(t)) })
	t.Run("TokenExpiryBoundary", func(t *testing.T) { testTokenExpiryBoundary(t, open(t)) })
	t.Run("Rotate", func(t *testing.T) { testRotate(t, open(t)) })
	t.Run("ConcurrentRotate", func(t *testing.T) { testConcurrentRotate(t, open(t)) })
	t.Run("Revoke", func(t *testing.T) { testRevoke(t, open(t)) })
	t.Run("ListActive", func(t *testing.T) { testListActive(t, open(t)) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, open(t)) })
}

func testUserLifecycle(t *testing.T, repos repositories) {
	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	// 1. Lookups by ID, username and email
	found, err := repos.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
	assert.Equal(t, sec.RoleUser, found.Role)
	assert.True(t, found.IsActive)
	assert.Zero(t, found.FailedLoginAttempts)
	assert.Nil(t, found.LockedUntil)

	for _, identifier := range []string{"alice", "alice@example.com"} {
		found, err := repos.users.FindByIdentifier(ctx, identifier)
		require.NoError(t, err, identifier)
		assert.Equal(t, user.ID, found.ID)
	}

	// 2. Username and email are both unique
	duplicateName := contractUser("alice")
	duplicateName.Email = "other@example.com"
	assert.ErrorIs(t, repos.users.Create(ctx, duplicateName), auth.ErrDuplicateUser)

	duplicateEmail := contractUser("bob")
	duplicateEmail.Email = user.Email
	assert.ErrorIs(t, repos.users.Create(ctx, duplicateEmail), auth.ErrDuplicateUser)

	// 3. Mutations
	require.NoError(t, repos.users.UpdatePassword(ctx, user.ID, "$2a$04$replaced", contractEpoch.Add(time.Minute)))
	require.NoError(t, repos.users.SetActive(ctx, user.ID, false, contractEpoch.Add(time.Minute)))

	found, err = repos.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$replaced", found.PasswordHash)
	assert.False(t, found.IsActive)

	// 4. Unknown accounts
	missing := uuid.New()
	_, err = repos.users.FindByID(ctx, missing)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = repos.users.FindByIdentifier(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	assert.ErrorIs(t, repos.users.UpdatePassword(ctx, missing, "hash", contractEpoch), auth.ErrUserNotFound)
	assert.ErrorIs(t, repos.users.SetActive(ctx, missing, true, contractEpoch), auth.ErrUserNotFound)
	_, err = repos.users.RecordLoginFailure(ctx, missing, 3, time.Minute, contractEpoch)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func testLockout(t *testing.T, repos repositories) {
	const threshold = 3
	const cooldown = 15 * time.Minute

	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))
	now := contractEpoch

	// 1. Failures 1..N-1 count without locking
	for attempt := 1; attempt < threshold; attempt++ {
		state, err := repos.users.RecordLoginFailure(ctx, user.ID, threshold, cooldown, now)
		require.NoError(t, err)
		assert.Equal(t, attempt, state.FailedAttempts)
		assert.Nil(t, state.LockedUntil)
	}

	// 2. The Nth failure stamps the lock
	state, err := repos.users.RecordLoginFailure(ctx, user.ID, threshold, cooldown, now)
	require.NoError(t, err)
	assert.Equal(t, threshold, state.FailedAttempts)
	assertInstant(t, now.Add(cooldown), state.LockedUntil)

	stored, err := repos.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked(now))
	assert.True(t, stored.IsLocked(now.Add(cooldown-time.Millisecond)))

	// 3. Failure N+1 inside the window keeps counting and keeps the lock
	state, err = repos.users.RecordLoginFailure(ctx, user.ID, threshold, cooldown, now)
	require.NoError(t, err)
	assert.Equal(t, threshold+1, state.FailedAttempts)
	assertInstant(t, now.Add(cooldown), state.LockedUntil)

	// 4. Once the lock has expired the next failure starts a fresh count
	state, err = repos.users.RecordLoginFailure(ctx, user.ID, threshold, cooldown, now.Add(cooldown))
	require.NoError(t, err)
	assert.Equal(t, 1, state.FailedAttempts)
	assert.Nil(t, state.LockedUntil)

	// 5. A reset clears everything
	require.NoError(t, repos.users.ResetLoginFailures(ctx, user.ID, now.Add(cooldown)))

	stored, err = repos.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func testTokenExpiryBoundary(t *testing.T, repos repositories) {
	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	expiresAt := contractEpoch.Add(time.Hour)
	token := contractToken(user.ID, "expiry-boundary", contractEpoch, expiresAt)
	require.NoError(t, repos.tokens.Create(ctx, token))
	assert.ErrorIs(t, repos.tokens.Create(ctx, token), auth.ErrDuplicateRefreshToken)

	// 1. Valid until one millisecond before expiry
	found, err := repos.tokens.FindActive(ctx, token.TokenHash, expiresAt.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.Equal(t, token.Device, found.Device)
	assert.Empty(t, found.Value)
	assert.Nil(t, found.LastUsedAt)

	touched, err := repos.tokens.Touch(ctx, token.TokenHash, expiresAt.Add(-time.Millisecond))
	require.NoError(t, err)
	assertInstant(t, expiresAt.Add(-time.Millisecond), touched.LastUsedAt)

	// 2. Rejected at and after the expiry instant
	for _, at := range []time.Time{expiresAt, expiresAt.Add(time.Millisecond)} {
		_, err := repos.tokens.FindActive(ctx, token.TokenHash, at)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound, at)

		_, err = repos.tokens.Touch(ctx, token.TokenHash, at)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound, at)
	}

	_, err = repos.tokens.FindActive(ctx, sec.HashToken("never-issued"), contractEpoch)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
}

func testRotate(t *testing.T, repos repositories) {
	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	expiresAt := contractEpoch.Add(time.Hour)
	old := contractToken(user.ID, "rotate-old", contractEpoch, expiresAt)
	require.NoError(t, repos.tokens.Create(ctx, old))

	now := contractEpoch.Add(time.Minute)
	replacement := contractToken(user.ID, "rotate-new", now, now.Add(time.Hour))

	consumed, err := repos.tokens.Rotate(ctx, old.TokenHash, replacement, now)
	require.NoError(t, err)
	assert.Equal(t, old.ID, consumed.ID)
	assert.False(t, consumed.IsActive)
	assertInstant(t, now, consumed.RevokedAt)

	_, err = repos.tokens.FindActive(ctx, old.TokenHash, now)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	found, err := repos.tokens.FindActive(ctx, replacement.TokenHash, now)
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, found.ID)

	// A consumed token cannot be rotated again
	_, err = repos.tokens.Rotate(ctx, old.TokenHash, contractToken(user.ID, "rotate-again", now, now.Add(time.Hour)), now)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	// Nor can an expired one
	expired := contractToken(user.ID, "rotate-expired", contractEpoch, now)
	require.NoError(t, repos.tokens.Create(ctx, expired))
	_, err = repos.tokens.Rotate(ctx, expired.TokenHash, contractToken(user.ID, "rotate-late", now, now.Add(time.Hour)), now)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
}

func testConcurrentRotate(t *testing.T, repos repositories) {
	const contenders = 8

	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	old := contractToken(user.ID, "contended", contractEpoch, contractEpoch.Add(time.Hour))
	require.NoError(t, repos.tokens.Create(ctx, old))

	now := contractEpoch.Add(time.Minute)
	errs := make([]error, contenders)

	var wg sync.WaitGroup
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			replacement := contractToken(user.ID, fmt.Sprintf("contender-%d", i), now, now.Add(time.Hour))
			_, errs[i] = repos.tokens.Rotate(ctx, old.TokenHash, replacement, now)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	}
	assert.Equal(t, 1, winners)

	active, err := repos.tokens.ListActiveForUser(ctx, user.ID, now)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func testRevoke(t *testing.T, repos repositories) {
	ctx := context.Background()
	alice := contractUser("alice")
	bob := contractUser("bob")
	require.NoError(t, repos.users.Create(ctx, alice))
	require.NoError(t, repos.users.Create(ctx, bob))

	expiresAt := contractEpoch.Add(time.Hour)
	first := contractToken(alice.ID, "revoke-first", contractEpoch, expiresAt)
	second := contractToken(alice.ID, "revoke-second", contractEpoch, expiresAt)
	third := contractToken(alice.ID, "revoke-third", contractEpoch, expiresAt)
	other := contractToken(bob.ID, "revoke-other", contractEpoch, expiresAt)
	for _, token := range []*auth.RefreshToken{first, second, third, other} {
		require.NoError(t, repos.tokens.Create(ctx, token))
	}

	// 1. Revoke is idempotent and reports whether it changed anything
	revoked, err := repos.tokens.Revoke(ctx, first.TokenHash, contractEpoch)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repos.tokens.Revoke(ctx, first.TokenHash, contractEpoch)
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = repos.tokens.Revoke(ctx, sec.HashToken("never-issued"), contractEpoch)
	require.NoError(t, err)
	assert.False(t, revoked)

	// 2. RevokeAllForUser only counts tokens it flipped, and only the user's
	count, err := repos.tokens.RevokeAllForUser(ctx, alice.ID, contractEpoch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repos.tokens.RevokeAllForUser(ctx, alice.ID, contractEpoch)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repos.tokens.FindActive(ctx, other.TokenHash, contractEpoch)
	assert.NoError(t, err)
}

func testListActive(t *testing.T, repos repositories) {
	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	now := contractEpoch.Add(time.Hour)
	older := contractToken(user.ID, "list-older", contractEpoch, now.Add(time.Hour))
	newer := contractToken(user.ID, "list-newer", contractEpoch.Add(time.Minute), now.Add(time.Hour))
	expired := contractToken(user.ID, "list-expired", contractEpoch.Add(2*time.Minute), now)
	revoked := contractToken(user.ID, "list-revoked", contractEpoch.Add(3*time.Minute), now.Add(time.Hour))
	for _, token := range []*auth.RefreshToken{older, newer, expired, revoked} {
		require.NoError(t, repos.tokens.Create(ctx, token))
	}
	_, err := repos.tokens.Revoke(ctx, revoked.TokenHash, now)
	require.NoError(t, err)

	active, err := repos.tokens.ListActiveForUser(ctx, user.ID, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)

	none, err := repos.tokens.ListActiveForUser(ctx, uuid.New(), now)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testDeleteExpired(t *testing.T, repos repositories) {
	ctx := context.Background()
	user := contractUser("alice")
	require.NoError(t, repos.users.Create(ctx, user))

	now := contractEpoch.Add(24 * time.Hour)
	activeExpired := contractToken(user.ID, "sweep-active-expired", contractEpoch, now.Add(-time.Millisecond))
	revokedExpired := contractToken(user.ID, "sweep-revoked-expired", contractEpoch, now.Add(-time.Hour))
	atBoundary := contractToken(user.ID, "sweep-boundary", contractEpoch, now)
	revokedValid := contractToken(user.ID, "sweep-revoked-valid", contractEpoch, now.Add(time.Hour))
	activeValid := contractToken(user.ID, "sweep-active-valid", contractEpoch, now.Add(time.Hour))
	for _, token := range []*auth.RefreshToken{activeExpired, revokedExpired, atBoundary, revokedValid, activeValid} {
		require.NoError(t, repos.tokens.Create(ctx, token))
	}
	for _, token := range []*auth.RefreshToken{revokedExpired, revokedValid} {
		_, err := repos.tokens.Revoke(ctx, token.TokenHash, contractEpoch)
		require.NoError(t, err)
	}

	// Expired rows go whether or not they were revoked; the boundary row stays
	deleted, err := repos.tokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = repos.tokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = repos.tokens.FindActive(ctx, activeValid.TokenHash, now)
	assert.NoError(t, err)

	// A deleted digest can be stored again, a kept one cannot
	assert.NoError(t, repos.tokens.Create(ctx, activeExpired))
	assert.ErrorIs(t, repos.tokens.Create(ctx, revokedValid), auth.ErrDuplicateRefreshToken)
}
