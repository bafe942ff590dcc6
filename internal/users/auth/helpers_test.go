// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/users/auth"
	"github.com/taibuivan/gatekeep/pkg/ident"
	"github.com/taibuivan/gatekeep/pkg/uuid"
)

const (
	testSecret      = "0123456789abcdef0123456789abcdef"
	testIssuer      = "gatekeep.test"
	testAccessTTL   = 15 * time.Minute
	testRefreshTTL  = 7 * 24 * time.Hour
	testResetTTL    = time.Hour
	testThreshold   = 5
	testCooldown    = 15 * time.Minute
	defaultPassword = "password123"
)

// testClock is a manually advanced clock shared by every component of a fixture.
type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *testClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(duration)
}

// captureMailer records reset mails instead of sending them.
type captureMailer struct {
	mu    sync.Mutex
	mails []auth.PasswordResetMail
}

func (mailer *captureMailer) SendPasswordReset(_ context.Context, mail auth.PasswordResetMail) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.mails = append(mailer.mails, mail)
	return nil
}

func (mailer *captureMailer) last(t *testing.T) auth.PasswordResetMail {
	t.Helper()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.NotEmpty(t, mailer.mails, "no reset mail captured")
	return mailer.mails[len(mailer.mails)-1]
}

func (mailer *captureMailer) count() int {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return len(mailer.mails)
}

type fixture struct {
	clock   *testClock
	users   *auth.MemoryUserRepository
	tokens  *auth.MemoryRefreshTokenRepository
	store   *auth.RefreshTokenStore
	codec   *sec.TokenCodec
	hasher  *sec.BcryptHasher
	mailer  *captureMailer
	service *auth.Service
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture wires a Service over in-memory repositories and a shared test clock.
func newFixture(t *testing.T, adjust ...func(*auth.Policy)) *fixture {
	t.Helper()

	clock := newTestClock()

	codec, err := sec.NewTokenCodec([]byte(testSecret), testIssuer)
	require.NoError(t, err)
	codec = codec.WithClock(clock.Now)

	tokens := auth.NewMemoryRefreshTokenRepository()
	store, err := auth.NewRefreshTokenStore(tokens, auth.RefreshTokenOptions{
		TTL:        testRefreshTTL,
		TokenBytes: sec.MinSecureTokenBytes,
	})
	require.NoError(t, err)
	store = store.WithClock(clock.Now)

	policy := auth.Policy{
		LockoutThreshold: testThreshold,
		LockoutCooldown:  testCooldown,
		ResetTokenTTL:    testResetTTL,
	}
	for _, apply := range adjust {
		apply(&policy)
	}

	users := auth.NewMemoryUserRepository()
	hasher := sec.NewBcryptHasher(4)
	mailer := &captureMailer{}

	service, err := auth.NewService(auth.Dependencies{
		Users:         users,
		RefreshTokens: store,
		ResetTokens:   auth.NewMemoryResetTokenRepository(clock.Now),
		Issuer:        auth.NewAccessTokenIssuer(codec, testAccessTTL, false),
		Hasher:        hasher,
		Mailer:        mailer,
		Logger:        discardLogger(),
		Clock:         clock.Now,
	}, policy)
	require.NoError(t, err)

	return &fixture{
		clock:   clock,
		users:   users,
		tokens:  tokens,
		store:   store,
		codec:   codec,
		hasher:  hasher,
		mailer:  mailer,
		service: service,
	}
}

func withRotation(policy *auth.Policy) {
	policy.RotateRefreshTokens = true
}

// seedUser stores an active account directly in the repository.
func (f *fixture) seedUser(t *testing.T, username string, role sec.Role) *auth.User {
	t.Helper()

	hash, err := f.hasher.Hash(defaultPassword)
	require.NoError(t, err)

	now := f.clock.Now()
	user := &auth.User{
		ID:           uuid.New(),
		Username:     ident.Normalize(username),
		Email:        ident.Normalize(username + "@example.com"),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) login(t *testing.T, identifier, password string) *auth.LoginResult {
	t.Helper()

	result, err := f.service.Login(context.Background(), auth.LoginInput{
		Identifier: identifier,
		Password:   password,
		Device:     auth.NewDeviceInfo("Mozilla/5.0 (X11; Linux x86_64)", "203.0.113.7"),
	})
	require.NoError(t, err)
	return result
}

// requireAppError asserts err is an AppError with the given status and code.
func requireAppError(t *testing.T, err error, status int, code string) *apperr.AppError {
	t.Helper()

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected *apperr.AppError, got %T: %v", err, err)
	assert.Equal(t, status, appErr.HTTPStatus)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
