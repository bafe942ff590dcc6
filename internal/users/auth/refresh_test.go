// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/users/auth"
)

// zeroReader yields an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(buffer []byte) (int, error) {
	for i := range buffer {
		buffer[i] = 0
	}
	return len(buffer), nil
}

func newStore(t *testing.T, clock *testClock) (*auth.RefreshTokenStore, *auth.MemoryRefreshTokenRepository) {
	t.Helper()

	repository := auth.NewMemoryRefreshTokenRepository()
	store, err := auth.NewRefreshTokenStore(repository, auth.RefreshTokenOptions{
		TTL:        testRefreshTTL,
		TokenBytes: sec.MinSecureTokenBytes,
	})
	require.NoError(t, err)
	return store.WithClock(clock.Now), repository
}

/*
TestRefreshTokenStore_Generate verifies the shape of a freshly issued token.
*/
func TestRefreshTokenStore_Generate(t *testing.T) {
	clock := newTestClock()
	store, _ := newStore(t, clock)
	device := auth.NewDeviceInfo("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148", "198.51.100.4")

	token, err := store.Generate(context.Background(), "user-1", device)
	require.NoError(t, err)

	assert.Regexp(t, refreshTokenPattern, token.Value)
	assert.Equal(t, sec.HashToken(token.Value), token.TokenHash)
	assert.True(t, token.IsActive)
	assert.Equal(t, clock.Now().Add(testRefreshTTL), token.ExpiresAt)
	assert.Equal(t, auth.DeviceMobile, token.Device.DeviceClass)
	assert.Nil(t, token.LastUsedAt)

	// The stored record never carries the plaintext
	stored, err := store.FindValid(context.Background(), token.Value)
	require.NoError(t, err)
	assert.Empty(t, stored.Value)
	assert.Equal(t, token.ID, stored.ID)
}

/*
TestRefreshTokenStore_FindValid checks acceptance iff active and unexpired.
*/
func TestRefreshTokenStore_FindValid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*testing.T, *auth.RefreshTokenStore, *testClock, string)
		isValid bool
	}{
		{
			name:    "Fresh token",
			mutate:  func(*testing.T, *auth.RefreshTokenStore, *testClock, string) {},
			isValid: true,
		},
		{
			name: "One millisecond before expiry",
			mutate: func(_ *testing.T, _ *auth.RefreshTokenStore, clock *testClock, _ string) {
				clock.Advance(testRefreshTTL - time.Millisecond)
			},
			isValid: true,
		},
		{
			name: "Exactly at expiry",
			mutate: func(_ *testing.T, _ *auth.RefreshTokenStore, clock *testClock, _ string) {
				clock.Advance(testRefreshTTL)
			},
			isValid: false,
		},
		{
			name: "Revoked",
			mutate: func(t *testing.T, store *auth.RefreshTokenStore, _ *testClock, value string) {
				revoked, err := store.Revoke(ctx, value)
				require.NoError(t, err)
				require.True(t, revoked)
			},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newTestClock()
			store, _ := newStore(t, clock)

			token, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
			require.NoError(t, err)

			tt.mutate(t, store, clock, token.Value)

			_, err = store.FindValid(ctx, token.Value)
			if tt.isValid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
			}
		})
	}

	// Empty and unknown values look exactly like an invalid token
	store, _ := newStore(t, newTestClock())
	_, err := store.FindValid(ctx, "")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	_, err = store.FindValid(ctx, "0123abcd")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
}

/*
TestRefreshTokenStore_Revoke verifies revocation is idempotent.
*/
func TestRefreshTokenStore_Revoke(t *testing.T) {
	store, _ := newStore(t, newTestClock())
	ctx := context.Background()

	token, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	first, err := store.Revoke(ctx, token.Value)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.Revoke(ctx, token.Value)
	require.NoError(t, err)
	assert.False(t, second)

	unknown, err := store.Revoke(ctx, "")
	require.NoError(t, err)
	assert.False(t, unknown)
}

/*
TestRefreshTokenStore_RevokeAllForUser is the three devices then a fourth scenario.
*/
func TestRefreshTokenStore_RevokeAllForUser(t *testing.T) {
	store, _ := newStore(t, newTestClock())
	ctx := context.Background()

	agents := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile",
	}

	values := make([]string, 0, len(agents))
	for _, agent := range agents {
		token, err := store.Generate(ctx, "user-1", auth.NewDeviceInfo(agent, "192.0.2.1"))
		require.NoError(t, err)
		values = append(values, token.Value)
	}

	other, err := store.Generate(ctx, "user-2", auth.DeviceInfo{})
	require.NoError(t, err)

	count, err := store.RevokeAllForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	for _, value := range values {
		_, err := store.FindValid(ctx, value)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	}

	fourth, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)
	_, err = store.FindValid(ctx, fourth.Value)
	assert.NoError(t, err)

	_, err = store.FindValid(ctx, other.Value)
	assert.NoError(t, err, "other users are unaffected")

	count, err = store.RevokeAllForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

/*
TestRefreshTokenStore_Touch verifies touching is observational only.
*/
func TestRefreshTokenStore_Touch(t *testing.T) {
	clock := newTestClock()
	store, _ := newStore(t, clock)
	ctx := context.Background()

	token, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	touched, err := store.Touch(ctx, token.Value)
	require.NoError(t, err)
	require.NotNil(t, touched.LastUsedAt)
	assert.Equal(t, clock.Now(), *touched.LastUsedAt)
	assert.Equal(t, token.ExpiresAt, touched.ExpiresAt)

	_, err = store.Revoke(ctx, token.Value)
	require.NoError(t, err)
	_, err = store.Touch(ctx, token.Value)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
}

/*
TestRefreshTokenStore_Rotate verifies the old value dies and the replacement inherits the owner.
*/
func TestRefreshTokenStore_Rotate(t *testing.T) {
	clock := newTestClock()
	store, repository := newStore(t, clock)
	ctx := context.Background()

	token, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	replacement, err := store.Rotate(ctx, token.Value, auth.DeviceInfo{IPAddress: "192.0.2.9"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", replacement.UserID)
	assert.NotEqual(t, token.Value, replacement.Value)

	_, err = store.FindValid(ctx, token.Value)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	_, err = store.Rotate(ctx, token.Value, auth.DeviceInfo{})
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	active, err := repository.ListActiveForUser(ctx, "user-1", clock.Now())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

/*
TestRefreshTokenStore_SweepExpired deletes expired rows regardless of isActive.
*/
func TestRefreshTokenStore_SweepExpired(t *testing.T) {
	clock := newTestClock()
	store, _ := newStore(t, clock)
	ctx := context.Background()

	active, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)
	revoked, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)
	_, err = store.Revoke(ctx, revoked.Value)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	fresh, err := store.Generate(ctx, "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	// 1. Nothing has expired yet
	deleted, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// 2. The first two expire, the later one survives
	clock.Advance(testRefreshTTL - 24*time.Hour + time.Millisecond)
	deleted, err = store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	_, err = store.FindValid(ctx, active.Value)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	_, err = store.FindValid(ctx, fresh.Value)
	assert.NoError(t, err)
}

/*
TestRefreshTokenStore_CollisionRetry verifies a digest collision is retried and then surfaced.
*/
func TestRefreshTokenStore_CollisionRetry(t *testing.T) {
	repository := auth.NewMemoryRefreshTokenRepository()
	store, err := auth.NewRefreshTokenStore(repository, auth.RefreshTokenOptions{
		TTL:        testRefreshTTL,
		TokenBytes: sec.MinSecureTokenBytes,
		Entropy:    zeroReader{},
	})
	require.NoError(t, err)

	_, err = store.Generate(context.Background(), "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	_, err = store.Generate(context.Background(), "user-1", auth.DeviceInfo{})
	assert.ErrorIs(t, err, auth.ErrDuplicateRefreshToken)
}

/*
TestNewRefreshTokenStore_Rejects covers weak options.
*/
func TestNewRefreshTokenStore_Rejects(t *testing.T) {
	repository := auth.NewMemoryRefreshTokenRepository()

	_, err := auth.NewRefreshTokenStore(repository, auth.RefreshTokenOptions{TTL: 0, TokenBytes: 32})
	assert.Error(t, err)

	_, err = auth.NewRefreshTokenStore(repository, auth.RefreshTokenOptions{TTL: time.Hour, TokenBytes: 16})
	assert.Error(t, err)
}

/*
TestRefreshTokenStore_DetachedWrites verifies writes complete after the caller cancels.
*/
func TestRefreshTokenStore_DetachedWrites(t *testing.T) {
	store, _ := newStore(t, newTestClock())

	token, err := store.Generate(context.Background(), "user-1", auth.DeviceInfo{})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	revoked, err := store.Revoke(cancelled, token.Value)
	require.NoError(t, err)
	assert.True(t, revoked)
}
