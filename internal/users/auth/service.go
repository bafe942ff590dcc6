// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/authz"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/platform/validate"
	"github.com/taibuivan/gatekeep/pkg/ident"
	"github.com/taibuivan/gatekeep/pkg/pointer"
	"github.com/taibuivan/gatekeep/pkg/slice"
	"github.com/taibuivan/gatekeep/pkg/uuid"
)

// dummyPassword is hashed once at construction so that a login for an unknown
// identifier costs the same bcrypt comparison as a wrong password.
const dummyPassword = "gatekeep-timing-equalizer"

// # Contracts & Types

// PasswordHasher hashes and compares passwords. [sec.BcryptHasher] satisfies it.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Compare(plainTextPassword, existingHash string) bool
}

// Dependencies are the collaborators of the Service.
type Dependencies struct {
	Users         UserRepository
	RefreshTokens *RefreshTokenStore
	ResetTokens   ResetTokenRepository
	Issuer        *AccessTokenIssuer
	Hasher        PasswordHasher

	// Optional collaborators. Nil values fall back to no-op or logging defaults.
	Mailer   Mailer
	Observer Observer
	Activity ActivityLogger
	Logger   *slog.Logger
	Clock    func() time.Time
	Entropy  io.Reader
}

// Policy holds the tunable security parameters of the Service.
type Policy struct {
	LockoutThreshold    int
	LockoutCooldown     time.Duration
	RotateRefreshTokens bool
	ResetTokenTTL       time.Duration
}

// Service implements login, refresh, logout and the account use cases.
//
// Every failure leaving the Service is an [apperr.AppError]. Typed errors from
// the repositories and the codec are mapped here and nowhere else.
type Service struct {
	users         UserRepository
	refreshTokens *RefreshTokenStore
	resetTokens   ResetTokenRepository
	issuer        *AccessTokenIssuer
	hasher        PasswordHasher
	mailer        Mailer
	observer      Observer
	activity      ActivityLogger
	logger        *slog.Logger
	now           func() time.Time
	entropy       io.Reader
	policy        Policy
	dummyHash     string
}

// NewService constructs a Service, validating the dependencies and the policy.
func NewService(deps Dependencies, policy Policy) (*Service, error) {
	if deps.Users == nil || deps.RefreshTokens == nil || deps.ResetTokens == nil || deps.Issuer == nil || deps.Hasher == nil {
		return nil, errors.New("auth: users, refresh tokens, reset tokens, issuer and hasher are required")
	}
	if policy.LockoutThreshold < 1 || policy.LockoutCooldown <= 0 {
		return nil, fmt.Errorf("auth: invalid lockout policy (threshold %d, cooldown %s)", policy.LockoutThreshold, policy.LockoutCooldown)
	}
	if policy.ResetTokenTTL <= 0 {
		return nil, fmt.Errorf("auth: reset token ttl must be positive, got %s", policy.ResetTokenTTL)
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Activity == nil {
		deps.Activity = NewSlogActivityLogger(deps.Logger)
	}
	if deps.Mailer == nil {
		deps.Mailer = NewLogMailer(deps.Logger)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Entropy == nil {
		deps.Entropy = rand.Reader
	}

	dummyHash, err := deps.Hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to prepare dummy hash: %w", err)
	}

	return &Service{
		users:         deps.Users,
		refreshTokens: deps.RefreshTokens,
		resetTokens:   deps.ResetTokens,
		issuer:        deps.Issuer,
		hasher:        deps.Hasher,
		mailer:        deps.Mailer,
		observer:      deps.Observer,
		activity:      deps.Activity,
		logger:        deps.Logger,
		now:           deps.Clock,
		entropy:       deps.Entropy,
		policy:        policy,
		dummyHash:     dummyHash,
	}, nil
}

// # Login Flow

// LoginInput holds the credentials and client metadata of a login attempt.
type LoginInput struct {
	Identifier string
	Password   string
	Device     DeviceInfo
}

// LoginResult is the token pair issued on a successful login.
type LoginResult struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	User                  UserView  `json:"user"`
}

/*
Login authenticates a user and mints an access/refresh token pair.

Description: Unknown identifiers and wrong passwords fail identically. The
failure that reaches the lockout threshold, and every attempt during the
cooldown, fail with ACCOUNT_LOCKED regardless of the password.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Tokens and the sanitized user
  - error: VALIDATION, INVALID_CREDENTIALS, ACCOUNT_LOCKED, ACCOUNT_INACTIVE or INTERNAL
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {

	// 1. Required fields
	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// 2. Resolve the account. Unknown identifiers still pay for one comparison.
	identifier := ident.Normalize(input.Identifier)
	user, err := service.users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		service.hasher.Compare(input.Password, service.dummyHash)
		service.observer.LoginAttempt(OutcomeInvalidCredentials)
		service.activity.Record(ctx, EventLoginFailed, "", slog.String("ip", input.Device.IPAddress))
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		service.observer.LoginAttempt(OutcomeError)
		return nil, apperr.Internal(err)
	}

	now := service.now()

	// 3. Refuse during the cooldown window, before touching the password
	if user.IsLocked(now) {
		service.observer.LoginAttempt(OutcomeLocked)
		service.activity.Record(ctx, EventLoginBlocked, user.ID, slog.String("ip", input.Device.IPAddress))
		return nil, apperr.AccountLocked(retryAfterSeconds(user.LockoutRemaining(now)))
	}

	// 4. Verify the password
	if !service.hasher.Compare(input.Password, user.PasswordHash) {
		return nil, service.recordFailure(ctx, user, input.Device, now)
	}

	// 5. Disabled accounts are refused only after the password checks out
	if !user.IsActive {
		service.observer.LoginAttempt(OutcomeInactive)
		return nil, apperr.AccountInactive()
	}

	// 6. A single success clears the counter
	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := service.users.ResetLoginFailures(ctx, user.ID, now); err != nil {
			service.observer.LoginAttempt(OutcomeError)
			return nil, apperr.Internal(err)
		}
	}

	// 7. Mint the pair
	accessToken, err := service.issueAccessToken(user)
	if err != nil {
		service.observer.LoginAttempt(OutcomeError)
		return nil, err
	}

	refreshToken, err := service.refreshTokens.Generate(ctx, user.ID, input.Device)
	if err != nil {
		service.observer.LoginAttempt(OutcomeError)
		return nil, apperr.Internal(err)
	}

	service.observer.LoginAttempt(OutcomeSuccess)
	service.observer.RefreshTokenIssued()
	service.activity.Record(ctx, EventLoginSucceeded, user.ID,
		slog.String("ip", input.Device.IPAddress),
		slog.String("device_class", string(input.Device.DeviceClass)),
	)

	return &LoginResult{
		AccessToken:           accessToken.Token,
		AccessTokenExpiresAt:  accessToken.ExpiresAt,
		RefreshToken:          refreshToken.Value,
		RefreshTokenExpiresAt: refreshToken.ExpiresAt,
		User:                  user.View(),
	}, nil
}

// recordFailure counts a wrong password and decides between INVALID_CREDENTIALS and ACCOUNT_LOCKED.
func (service *Service) recordFailure(ctx context.Context, user *User, device DeviceInfo, now time.Time) error {
	state, err := service.users.RecordLoginFailure(ctx, user.ID, service.policy.LockoutThreshold, service.policy.LockoutCooldown, now)
	if err != nil {
		service.observer.LoginAttempt(OutcomeError)
		return apperr.Internal(err)
	}

	if state.LockedUntil != nil && now.Before(*state.LockedUntil) {
		service.observer.LoginAttempt(OutcomeLocked)
		service.activity.Record(ctx, EventAccountLocked, user.ID,
			slog.String("ip", device.IPAddress),
			slog.Int("failed_attempts", state.FailedAttempts),
			slog.Time("locked_until", *state.LockedUntil),
		)
		return apperr.AccountLocked(retryAfterSeconds(state.LockedUntil.Sub(now)))
	}

	service.observer.LoginAttempt(OutcomeInvalidCredentials)
	service.activity.Record(ctx, EventLoginFailed, user.ID,
		slog.String("ip", device.IPAddress),
		slog.Int("failed_attempts", state.FailedAttempts),
	)
	return apperr.InvalidCredentials()
}

// issueAccessToken maps issuer failures onto the error taxonomy.
func (service *Service) issueAccessToken(user *User) (AccessToken, error) {
	token, err := service.issuer.Issue(user)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			return AccessToken{}, apperr.UnknownRole(err)
		}
		return AccessToken{}, apperr.Internal(err)
	}
	return token, nil
}

// retryAfterSeconds rounds a remaining duration up to whole seconds, minimum one.
func retryAfterSeconds(remaining time.Duration) int {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// # Refresh Flow

// RefreshResult carries the new access token and, when rotating, the replacement refresh token.
type RefreshResult struct {
	AccessToken           string     `json:"accessToken"`
	AccessTokenExpiresAt  time.Time  `json:"accessTokenExpiresAt"`
	RefreshToken          string     `json:"refreshToken,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refreshTokenExpiresAt,omitempty"`
}

/*
Refresh exchanges a valid refresh token for a new access token.

Description: Unknown, inactive and expired values all fail with
INVALID_REFRESH_TOKEN. With rotation enabled the presented value is consumed
by a conditional update, so a replayed or concurrently used value loses.

Parameters:
  - ctx: context.Context
  - value: string (Plaintext refresh token)
  - device: DeviceInfo (Metadata for a rotated replacement)

Returns:
  - *RefreshResult: New access token, plus the rotated refresh token if enabled
  - error: MISSING_TOKEN, INVALID_REFRESH_TOKEN or INTERNAL
*/
func (service *Service) Refresh(ctx context.Context, value string, device DeviceInfo) (*RefreshResult, error) {
	if value == "" {
		service.observer.RefreshAttempt(OutcomeInvalid)
		return nil, apperr.MissingToken("Refresh token is required")
	}

	// 1. Resolve the token
	token, err := service.refreshTokens.FindValid(ctx, value)
	if err != nil {
		return nil, service.refreshFailure(err)
	}

	// 2. Re-resolve the owner; a vanished or disabled account invalidates its tokens
	user, err := service.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, service.refreshFailure(err)
	}
	if !user.IsActive {
		service.observer.RefreshAttempt(OutcomeInvalid)
		return nil, apperr.InvalidRefreshToken()
	}

	// 3. Issue before mutating so that an unknown role leaves the token untouched
	accessToken, err := service.issueAccessToken(user)
	if err != nil {
		service.observer.RefreshAttempt(OutcomeError)
		return nil, err
	}

	result := &RefreshResult{
		AccessToken:          accessToken.Token,
		AccessTokenExpiresAt: accessToken.ExpiresAt,
	}

	// 4. Touch or rotate, both conditional on the token still being valid
	if service.policy.RotateRefreshTokens {
		replacement, err := service.refreshTokens.Rotate(ctx, value, device)
		if err != nil {
			return nil, service.refreshFailure(err)
		}

		result.RefreshToken = replacement.Value
		result.RefreshTokenExpiresAt = pointer.To(replacement.ExpiresAt)

		service.observer.RefreshAttempt(OutcomeRotated)
		service.observer.RefreshTokenIssued()
		service.observer.RefreshTokensRevokedBy(ReasonRotation, 1)
	} else {
		if _, err := service.refreshTokens.Touch(ctx, value); err != nil {
			return nil, service.refreshFailure(err)
		}
		service.observer.RefreshAttempt(OutcomeSuccess)
	}

	service.activity.Record(ctx, EventTokenRefreshed, user.ID, slog.Bool("rotated", service.policy.RotateRefreshTokens))
	return result, nil
}

func (service *Service) refreshFailure(err error) error {
	if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrUserNotFound) {
		service.observer.RefreshAttempt(OutcomeInvalid)
		return apperr.InvalidRefreshToken()
	}
	service.observer.RefreshAttempt(OutcomeError)
	return apperr.Internal(err)
}

// # Logout Flow

/*
Logout revokes a refresh token.

Description: Idempotent. Unknown and already revoked values succeed.

Returns:
  - error: VALIDATION when the value is empty, INTERNAL on storage failures
*/
func (service *Service) Logout(ctx context.Context, value string) error {
	if value == "" {
		return validate.RequiredError(FieldRefreshToken, "Refresh token is required")
	}

	revoked, err := service.refreshTokens.Revoke(ctx, value)
	if err != nil {
		return apperr.Internal(err)
	}

	service.observer.Logout()
	if revoked {
		service.observer.RefreshTokensRevokedBy(ReasonLogout, 1)
		service.activity.Record(ctx, EventLoggedOut, "")
	}
	return nil
}

/*
LogoutAll revokes every refresh token of the user.

Returns:
  - int64: Number of sessions ended
*/
func (service *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	count, err := service.refreshTokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}

	service.observer.RefreshTokensRevokedBy(ReasonLogoutAll, count)
	service.activity.Record(ctx, EventLoggedOutAll, userID, slog.Int64("revoked", count))
	return count, nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Validate applies the account rules shared by registration and the admin seed.
func (input RegisterInput) Validate() error {
	validator := &validate.Validator{}
	validator.AccountHandle(FieldUsername, input.Username).
		AccountEmail(FieldEmail, input.Email).
		AccountPassword(FieldPassword, input.Password)
	return validator.Err()
}

/*
Register validates, hashes, and persists a brand new user account with the user role.

Returns:
  - *User: Created entity
  - error: CONFLICT when the username or email is taken, INTERNAL otherwise
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return service.createUser(ctx, input, sec.RoleUser)
}

func (service *Service) createUser(ctx context.Context, input RegisterInput, role sec.Role) (*User, error) {
	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	now := service.now()
	user := &User{
		ID:           uuid.New(),
		Username:     ident.Normalize(input.Username),
		Email:        ident.Normalize(input.Email),
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, apperr.Conflict("Username or email is already registered")
		}
		return nil, apperr.Internal(fmt.Errorf("auth_service_register_failed: %w", err))
	}

	service.activity.Record(ctx, EventRegistered, user.ID, slog.String("role", role.String()))
	return user, nil
}

/*
EnsureAdmin creates an admin account when no account holds the username yet.

Description: The input goes through the same rules as a registration, so a
seed with a missing email or an oversized handle is refused.

Returns:
  - bool: true when an account was created
*/
func (service *Service) EnsureAdmin(ctx context.Context, input RegisterInput) (bool, error) {
	if err := input.Validate(); err != nil {
		return false, err
	}

	_, err := service.users.FindByIdentifier(ctx, ident.Normalize(input.Username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	user, err := service.createUser(ctx, input, sec.RoleAdmin)
	if err != nil {
		return false, err
	}

	service.activity.Record(ctx, EventAdminSeeded, user.ID)
	return true, nil
}

// # Password Management

/*
ChangePassword replaces the caller's password after verifying the current one.

Description: Every refresh token of the user is revoked afterwards, so other
devices must sign in again. A wrong current password counts toward the same
lockout as a failed login, and a locked account cannot change its password
until the cooldown ends.
*/
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound("User")
		}
		return apperr.Internal(err)
	}

	now := service.now()

	// 1. Refuse during the cooldown window
	if user.IsLocked(now) {
		service.activity.Record(ctx, EventLoginBlocked, user.ID)
		return apperr.AccountLocked(retryAfterSeconds(user.LockoutRemaining(now)))
	}

	// 2. Verify the current password
	if !service.hasher.Compare(currentPassword, user.PasswordHash) {
		return service.recordFailure(ctx, user, DeviceInfo{}, now)
	}

	// 3. Replace it and clear any earlier failures
	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := service.users.ResetLoginFailures(ctx, user.ID, now); err != nil {
			return apperr.Internal(err)
		}
	}

	if err := service.setPassword(ctx, user.ID, newPassword, ReasonPasswordChange); err != nil {
		return err
	}

	service.activity.Record(ctx, EventPasswordChanged, user.ID)
	return nil
}

/*
RequestPasswordReset issues a single-use reset token when the email is registered.

Description: The outcome is never reported to the caller, so the response for
an unknown email is identical to the one for a known email.
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := service.users.FindByIdentifier(ctx, ident.Normalize(email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			service.logger.ErrorContext(ctx, "password_reset_lookup_failed", slog.Any("error", err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	token, err := sec.GenerateSecureTokenFrom(service.entropy, ResetTokenLength)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.resetTokens.Save(ctx, sec.HashToken(token), user.ID, service.policy.ResetTokenTTL); err != nil {
		return apperr.Internal(err)
	}

	mail := PasswordResetMail{
		To:        user.Email,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: service.now().Add(service.policy.ResetTokenTTL),
	}
	if err := service.mailer.SendPasswordReset(ctx, mail); err != nil {
		service.logger.ErrorContext(ctx, "password_reset_mail_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	service.activity.Record(ctx, EventPasswordResetAsked, user.ID)
	return nil
}

/*
ResetPassword consumes a reset token and stores the new password.

Description: The lockout state is cleared and all refresh tokens are revoked.

Returns:
  - error: INVALID_RESET_TOKEN for unknown, used or expired tokens
*/
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.InvalidResetToken()
	}

	userID, err := service.resetTokens.Consume(ctx, sec.HashToken(token))
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return apperr.InvalidResetToken()
		}
		return apperr.Internal(err)
	}

	if err := service.setPassword(ctx, userID, newPassword, ReasonPasswordReset); err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Kind == apperr.KindNotFound {
			return apperr.InvalidResetToken()
		}
		return err
	}

	if err := service.users.ResetLoginFailures(ctx, userID, service.now()); err != nil {
		return apperr.Internal(err)
	}

	service.activity.Record(ctx, EventPasswordReset, userID)
	return nil
}

// setPassword hashes and stores a new password, then ends every session of the user.
func (service *Service) setPassword(ctx context.Context, userID, newPassword, reason string) error {
	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	if err := service.users.UpdatePassword(ctx, userID, hashedPassword, service.now()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound("User")
		}
		return apperr.Internal(err)
	}

	count, err := service.refreshTokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	service.observer.RefreshTokensRevokedBy(reason, count)
	return nil
}

// # Sessions & Administration

// GetUser returns the sanitized view of an account.
func (service *Service) GetUser(ctx context.Context, userID string) (*UserView, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal(err)
	}

	view := user.View()
	return &view, nil
}

// ListSessions returns the active sessions of a user, newest first.
func (service *Service) ListSessions(ctx context.Context, userID string) ([]SessionView, error) {
	tokens, err := service.refreshTokens.ListActive(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if len(tokens) == 0 {
		return []SessionView{}, nil
	}
	return slice.Map(tokens, func(token RefreshToken) SessionView { return token.View() }), nil
}

/*
RevokeUserSessions ends every session of a user on behalf of an administrator.

Returns:
  - int64: Number of sessions revoked
*/
func (service *Service) RevokeUserSessions(ctx context.Context, actor authz.Subject, userID string) (int64, error) {
	if _, err := service.GetUser(ctx, userID); err != nil {
		return 0, err
	}

	count, err := service.refreshTokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}

	service.observer.RefreshTokensRevokedBy(ReasonAdminRevoke, count)
	service.activity.Record(ctx, EventSessionsRevoked, userID,
		slog.String("actor_id", actor.UserID),
		slog.Int64("revoked", count),
	)
	return count, nil
}

/*
DeactivateUser disables an account and revokes all of its refresh tokens.

Description: Access tokens already issued stay valid until they expire.
An administrator cannot deactivate their own account.

Returns:
  - int64: Number of sessions revoked
*/
func (service *Service) DeactivateUser(ctx context.Context, actor authz.Subject, userID string) (int64, error) {
	if actor.UserID == userID {
		return 0, apperr.ValidationError("You cannot deactivate your own account",
			apperr.FieldError{Field: FieldUserID, Message: "must differ from the caller"})
	}

	if err := service.users.SetActive(ctx, userID, false, service.now()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, apperr.NotFound("User")
		}
		return 0, apperr.Internal(err)
	}

	count, err := service.refreshTokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, apperr.Internal(err)
	}

	service.observer.RefreshTokensRevokedBy(ReasonDeactivation, count)
	service.activity.Record(ctx, EventUserDeactivated, userID,
		slog.String("actor_id", actor.UserID),
		slog.Int64("revoked", count),
	)
	return count, nil
}

// Profile builds the claims view of the authenticated caller.
func Profile(claims *sec.AuthClaims, subject authz.Subject) ProfileView {
	return ProfileView{
		UserID:      claims.UserID,
		Identifier:  claims.Identifier,
		Role:        claims.Role,
		Permissions: subject.Permissions.Strings(),
		IssuedAt:    claims.IssuedAtTime(),
		ExpiresAt:   claims.ExpiresAtTime(),
	}
}
