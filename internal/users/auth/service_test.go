// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/authz"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/users/auth"
)

var refreshTokenPattern = regexp.MustCompile(`^[0-9a-f]{64,}$`)

/*
TestLogin_SeededAdmin covers the canonical admin/password123 scenario.
*/
func TestLogin_SeededAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.EnsureAdmin(ctx, auth.RegisterInput{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	require.True(t, created)

	result := f.login(t, "admin", "password123")

	assert.NotEmpty(t, result.AccessToken)
	assert.Regexp(t, refreshTokenPattern, result.RefreshToken)
	assert.Equal(t, sec.RoleAdmin, result.User.Role)

	// 1. The access token verifies and carries the same identity
	claims, err := f.codec.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, string(sec.RoleAdmin), claims.Role)
	assert.Empty(t, claims.Permissions)

	// 2. The user view never exposes the password hash
	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "$2a$")
	assert.NotContains(t, string(body), "passwordHash")

	// 3. A second seed is a no-op
	created, err = f.service.EnsureAdmin(ctx, auth.RegisterInput{Username: "ADMIN", Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, created)
}

/*
TestEnsureAdmin_RejectsInvalidSeed refuses seeds that would not pass registration.
*/
func TestEnsureAdmin_RejectsInvalidSeed(t *testing.T) {
	tests := []struct {
		name  string
		input auth.RegisterInput
		field string
	}{
		{"Missing email", auth.RegisterInput{Username: "admin", Password: "password123"}, auth.FieldEmail},
		{"Malformed email", auth.RegisterInput{Username: "admin", Email: "admin", Password: "password123"}, auth.FieldEmail},
		{"Oversized username", auth.RegisterInput{Username: strings.Repeat("a", auth.MaxUsernameLength+1), Email: "admin@example.com", Password: "password123"}, auth.FieldUsername},
		{"Username with at sign", auth.RegisterInput{Username: "admin@corp", Email: "admin@example.com", Password: "password123"}, auth.FieldUsername},
		{"Weak password", auth.RegisterInput{Username: "admin", Email: "admin@example.com", Password: "password"}, auth.FieldPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			created, err := f.service.EnsureAdmin(context.Background(), tt.input)
			appErr := requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
			assert.False(t, created)

			var fields []string
			for _, detail := range appErr.Details {
				fields = append(fields, detail.Field)
			}
			assert.Contains(t, fields, tt.field)

			_, err = f.users.FindByIdentifier(context.Background(), "admin")
			assert.ErrorIs(t, err, auth.ErrUserNotFound)
		})
	}
}

/*
TestLogin_IdentifierForms verifies that username and email both resolve, case-insensitively.
*/
func TestLogin_IdentifierForms(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)

	for _, identifier := range []string{"alice", "ALICE", "  Alice ", "alice@example.com", "Alice@Example.COM"} {
		t.Run(identifier, func(t *testing.T) {
			result := f.login(t, identifier, defaultPassword)
			assert.Equal(t, user.ID, result.User.ID)
		})
	}
}

/*
TestLogin_NoEnumeration asserts unknown accounts and wrong passwords fail identically.
*/
func TestLogin_NoEnumeration(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	_, unknownErr := f.service.Login(ctx, auth.LoginInput{Identifier: "nobody", Password: defaultPassword})
	_, wrongErr := f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: "wrong-password1"})

	unknown := requireAppError(t, unknownErr, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
	wrong := requireAppError(t, wrongErr, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, unknown.Kind, wrong.Kind)
}

/*
TestLogin_Validation covers missing fields.
*/
func TestLogin_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input auth.LoginInput
	}{
		{"Missing identifier", auth.LoginInput{Password: defaultPassword}},
		{"Missing password", auth.LoginInput{Identifier: "alice"}},
		{"Blank identifier", auth.LoginInput{Identifier: "   ", Password: defaultPassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Login(context.Background(), tt.input)
			appErr := requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
		})
	}
}

/*
TestLogin_Lockout walks through N failures, the locked (N+1)th attempt and the cooldown.
*/
func TestLogin_Lockout(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	attempt := func(password string) error {
		_, err := f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: password})
		return err
	}

	// 1. The first N-1 failures are plain invalid credentials
	for i := 1; i < testThreshold; i++ {
		requireAppError(t, attempt("wrong-password1"), http.StatusUnauthorized, apperr.CodeInvalidCredentials)
	}

	// 2. The Nth failure engages the lock
	requireAppError(t, attempt("wrong-password1"), http.StatusLocked, apperr.CodeAccountLocked)

	// 3. The (N+1)th attempt fails even with the correct password
	locked := requireAppError(t, attempt(defaultPassword), http.StatusLocked, apperr.CodeAccountLocked)
	assert.Equal(t, apperr.KindLockout, locked.Kind)
	assert.Equal(t, int(testCooldown.Seconds()), locked.RetryAfter)

	// 4. Still locked one second before the window ends
	f.clock.Advance(testCooldown - time.Second)
	locked = requireAppError(t, attempt(defaultPassword), http.StatusLocked, apperr.CodeAccountLocked)
	assert.Equal(t, 1, locked.RetryAfter)

	// 5. After the cooldown the correct password succeeds and the counter resets
	f.clock.Advance(time.Second)
	require.NoError(t, attempt(defaultPassword))

	stored, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

/*
TestLogin_SuccessResetsCounter ensures failures must be consecutive to lock.
*/
func TestLogin_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		for i := 1; i < testThreshold; i++ {
			_, err := f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: "wrong-password1"})
			requireAppError(t, err, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
		}
		f.login(t, "alice", defaultPassword)
	}
}

/*
TestLogin_ExpiredLockRestartsCount checks that failures after an expired lock start from one.
*/
func TestLogin_ExpiredLockRestartsCount(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	for i := 0; i < testThreshold; i++ {
		_, _ = f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: "wrong-password1"})
	}
	f.clock.Advance(testCooldown)

	_, err := f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: "wrong-password1"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
}

/*
TestLogin_InactiveAccount verifies deactivated accounts cannot sign in.
*/
func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)
	require.NoError(t, f.users.SetActive(context.Background(), user.ID, false, f.clock.Now()))

	_, err := f.service.Login(context.Background(), auth.LoginInput{Identifier: "alice", Password: defaultPassword})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeAccountInactive)
}

/*
TestLogin_UnknownRole verifies a role outside the role table fails closed.
*/
func TestLogin_UnknownRole(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "mallory", sec.Role("superuser"))

	_, err := f.service.Login(context.Background(), auth.LoginInput{Identifier: "mallory", Password: defaultPassword})
	appErr := requireAppError(t, err, http.StatusInternalServerError, apperr.CodeUnknownRole)
	assert.ErrorIs(t, appErr, auth.ErrUnknownRole)
}

/*
TestRefresh_TouchesWithoutRotation covers the default, non-rotating refresh.
*/
func TestRefresh_TouchesWithoutRotation(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleModerator)
	session := f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	f.clock.Advance(time.Minute)

	result, err := f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{})
	require.NoError(t, err)
	assert.Empty(t, result.RefreshToken)
	assert.Nil(t, result.RefreshTokenExpiresAt)

	claims, err := f.codec.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, string(sec.RoleModerator), claims.Role)

	// The same value keeps working and lastUsedAt moved forward
	stored, err := f.store.FindValid(ctx, session.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.Equal(t, f.clock.Now(), *stored.LastUsedAt)

	_, err = f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{})
	assert.NoError(t, err)
}

/*
TestRefresh_Failures maps every invalid refresh attempt onto its error.
*/
func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	_, err := f.service.Refresh(ctx, "", auth.DeviceInfo{})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeMissingToken)

	_, err = f.service.Refresh(ctx, "deadbeef", auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)

	session := f.login(t, "alice", defaultPassword)
	require.NoError(t, f.service.Logout(ctx, session.RefreshToken))

	_, err = f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)
}

/*
TestRefresh_ExpiredByOneMillisecond is the boundary scenario for expiry.
*/
func TestRefresh_ExpiredByOneMillisecond(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)

	f.clock.Advance(testRefreshTTL + time.Millisecond)

	_, err := f.service.Refresh(context.Background(), session.RefreshToken, auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)
}

/*
TestRefresh_InactiveOwner verifies that a deactivated owner invalidates refresh.
*/
func TestRefresh_InactiveOwner(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)

	require.NoError(t, f.users.SetActive(context.Background(), user.ID, false, f.clock.Now()))

	_, err := f.service.Refresh(context.Background(), session.RefreshToken, auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)
}

/*
TestRefresh_Rotation verifies the old value is consumed and the new one works.
*/
func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t, withRotation)
	f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	rotated, err := f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{UserAgent: "curl/8.0", DeviceClass: auth.DeviceBot})
	require.NoError(t, err)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	require.NotNil(t, rotated.RefreshTokenExpiresAt)

	// 1. Replay of the consumed value fails
	_, err = f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)

	// 2. The replacement works and rotates again
	again, err := f.service.Refresh(ctx, rotated.RefreshToken, auth.DeviceInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, rotated.RefreshToken, again.RefreshToken)
}

/*
TestRefresh_ConcurrentRotation ensures only one of many concurrent uses of a value wins.
*/
func TestRefresh_ConcurrentRotation(t *testing.T) {
	f := newFixture(t, withRotation)
	f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Refresh(context.Background(), session.RefreshToken, auth.DeviceInfo{})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

/*
TestLogout_Idempotent verifies repeated logouts succeed and the token is dead.
*/
func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	assert.NoError(t, f.service.Logout(ctx, session.RefreshToken))
	assert.NoError(t, f.service.Logout(ctx, session.RefreshToken))
	assert.NoError(t, f.service.Logout(ctx, "never-issued"))

	_, err := f.store.FindValid(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	err = f.service.Logout(ctx, "")
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
}

/*
TestLogoutAll revokes every device of the caller but no one else's.
*/
func TestLogoutAll(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice", sec.RoleUser)
	f.seedUser(t, "bob", sec.RoleUser)
	ctx := context.Background()

	first := f.login(t, "alice", defaultPassword)
	second := f.login(t, "alice", defaultPassword)
	other := f.login(t, "bob", defaultPassword)

	count, err := f.service.LogoutAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	for _, value := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := f.store.FindValid(ctx, value)
		assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	}

	_, err = f.store.FindValid(ctx, other.RefreshToken)
	assert.NoError(t, err)
}

/*
TestRegister creates a normalized user account and rejects duplicates.
*/
func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.Register(ctx, auth.RegisterInput{Username: "Carol", Email: "Carol@Example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, sec.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)

	tests := []struct {
		name  string
		input auth.RegisterInput
	}{
		{"Same username, different case", auth.RegisterInput{Username: "CAROL", Email: "other@example.com", Password: "s3cretpass"}},
		{"Same email, different case", auth.RegisterInput{Username: "carol2", Email: "CAROL@example.com", Password: "s3cretpass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Register(ctx, tt.input)
			requireAppError(t, err, http.StatusConflict, "CONFLICT")
		})
	}

	f.login(t, "carol", "s3cretpass")
}

/*
TestChangePassword verifies the current password and ends every session.
*/
func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, user.ID, "not-my-password1", "newpassw0rd")
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeInvalidCredentials)

	require.NoError(t, f.service.ChangePassword(ctx, user.ID, defaultPassword, "newpassw0rd"))

	_, err = f.store.FindValid(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)

	_, err = f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: defaultPassword})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
	f.login(t, "alice", "newpassw0rd")
}

/*
TestChangePassword_Lockout counts wrong current passwords toward the login lockout.
*/
func TestChangePassword_Lockout(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	// 1. Attempts 1..N-1 fail as invalid credentials
	for attempt := 1; attempt < testThreshold; attempt++ {
		err := f.service.ChangePassword(ctx, user.ID, "guess-number1", "newpassw0rd")
		requireAppError(t, err, http.StatusUnauthorized, apperr.CodeInvalidCredentials)
	}

	// 2. The Nth failure locks the account
	err := f.service.ChangePassword(ctx, user.ID, "guess-number1", "newpassw0rd")
	requireAppError(t, err, http.StatusLocked, apperr.CodeAccountLocked)

	// 3. Even the right password is refused while locked, for both operations
	err = f.service.ChangePassword(ctx, user.ID, defaultPassword, "newpassw0rd")
	requireAppError(t, err, http.StatusLocked, apperr.CodeAccountLocked)

	_, err = f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: defaultPassword})
	requireAppError(t, err, http.StatusLocked, apperr.CodeAccountLocked)

	// 4. After the cooldown a success clears the counter
	f.clock.Advance(testCooldown)
	require.NoError(t, f.service.ChangePassword(ctx, user.ID, defaultPassword, "newpassw0rd"))

	stored, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

/*
TestPasswordReset covers the full forgot/reset flow and single use of the token.
*/
func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	// 1. Unknown emails are silently accepted and send nothing
	require.NoError(t, f.service.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Zero(t, f.mailer.count())

	// 2. A known email receives a token
	require.NoError(t, f.service.RequestPasswordReset(ctx, "ALICE@example.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, "alice@example.com", mail.To)
	assert.Regexp(t, refreshTokenPattern, mail.Token)

	// 3. Reset succeeds once
	require.NoError(t, f.service.ResetPassword(ctx, mail.Token, "brandnew1pass"))

	err := f.service.ResetPassword(ctx, mail.Token, "another1pass")
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeInvalidResetToken)

	// 4. Old sessions are gone, the new password works
	_, err = f.store.FindValid(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenNotFound)
	f.login(t, "alice", "brandnew1pass")
}

/*
TestPasswordReset_ClearsLockout verifies a reset unlocks a locked account.
*/
func TestPasswordReset_ClearsLockout(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	for i := 0; i < testThreshold; i++ {
		_, _ = f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: "wrong-password1"})
	}

	require.NoError(t, f.service.RequestPasswordReset(ctx, "alice@example.com"))
	require.NoError(t, f.service.ResetPassword(ctx, f.mailer.last(t).Token, "brandnew1pass"))

	f.login(t, "alice", "brandnew1pass")
}

/*
TestPasswordReset_Expired verifies tokens die with their TTL.
*/
func TestPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	require.NoError(t, f.service.RequestPasswordReset(ctx, "alice@example.com"))
	f.clock.Advance(testResetTTL)

	err := f.service.ResetPassword(ctx, f.mailer.last(t).Token, "brandnew1pass")
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeInvalidResetToken)

	err = f.service.ResetPassword(ctx, "", "brandnew1pass")
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeInvalidResetToken)
}

/*
TestDeactivateUser cascades revocation and blocks future logins.
*/
func TestDeactivateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "root", sec.RoleAdmin)
	alice := f.seedUser(t, "alice", sec.RoleUser)
	session := f.login(t, "alice", defaultPassword)
	f.login(t, "alice", defaultPassword)
	ctx := context.Background()

	actor := authz.Subject{UserID: admin.ID, Role: sec.RoleAdmin}

	count, err := f.service.DeactivateUser(ctx, actor, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = f.service.Refresh(ctx, session.RefreshToken, auth.DeviceInfo{})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeInvalidRefreshToken)

	_, err = f.service.Login(ctx, auth.LoginInput{Identifier: "alice", Password: defaultPassword})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeAccountInactive)

	// Self-deactivation and unknown targets
	_, err = f.service.DeactivateUser(ctx, actor, admin.ID)
	requireAppError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = f.service.DeactivateUser(ctx, actor, "0190a8f0-0000-7000-8000-000000000000")
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
}

/*
TestSessionsAndAdminRevoke covers listing sessions and administrative revocation.
*/
func TestSessionsAndAdminRevoke(t *testing.T) {
	f := newFixture(t)
	admin := f.seedUser(t, "root", sec.RoleAdmin)
	alice := f.seedUser(t, "alice", sec.RoleUser)
	ctx := context.Background()

	f.login(t, "alice", defaultPassword)
	f.clock.Advance(time.Second)
	f.login(t, "alice", defaultPassword)

	sessions, err := f.service.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].CreatedAt.After(sessions[1].CreatedAt))
	assert.Equal(t, auth.DeviceDesktop, sessions[0].DeviceClass)
	assert.Equal(t, "203.0.113.7", sessions[0].IPAddress)

	count, err := f.service.RevokeUserSessions(ctx, authz.Subject{UserID: admin.ID, Role: sec.RoleAdmin}, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	sessions, err = f.service.ListSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

/*
TestNewService_RejectsBadPolicy covers construction guards.
*/
func TestNewService_RejectsBadPolicy(t *testing.T) {
	f := newFixture(t)

	deps := auth.Dependencies{
		Users:         f.users,
		RefreshTokens: f.store,
		ResetTokens:   auth.NewMemoryResetTokenRepository(nil),
		Issuer:        auth.NewAccessTokenIssuer(f.codec, testAccessTTL, false),
		Hasher:        f.hasher,
	}

	tests := []struct {
		name   string
		deps   auth.Dependencies
		policy auth.Policy
	}{
		{"Zero threshold", deps, auth.Policy{LockoutCooldown: time.Minute, ResetTokenTTL: time.Hour}},
		{"Zero cooldown", deps, auth.Policy{LockoutThreshold: 5, ResetTokenTTL: time.Hour}},
		{"Zero reset ttl", deps, auth.Policy{LockoutThreshold: 5, LockoutCooldown: time.Minute}},
		{"Missing repositories", auth.Dependencies{Hasher: f.hasher}, auth.Policy{LockoutThreshold: 5, LockoutCooldown: time.Minute, ResetTokenTTL: time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewService(tt.deps, tt.policy)
			assert.Error(t, err)
		})
	}
}
