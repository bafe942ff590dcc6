// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "github.com/taibuivan/gatekeep/internal/platform/validate"

// # Input Constraints

const (
	MinPasswordLength = validate.MinPasswordLength
	MaxPasswordLength = validate.MaxPasswordLength
	MinUsernameLength = validate.MinUsernameLength
	MaxUsernameLength = validate.MaxUsernameLength
	MaxEmailLength    = validate.MaxEmailLength

	// MaxUserAgentLength truncates stored device metadata.
	MaxUserAgentLength = 512

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32
)

// # Metric Outcomes

const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeLocked             = "locked"
	OutcomeInactive           = "inactive"
	OutcomeInvalid            = "invalid"
	OutcomeRotated            = "rotated"
	OutcomeError              = "error"
)

// # Revocation Reasons

const (
	ReasonLogout         = "logout"
	ReasonLogoutAll      = "logout_all"
	ReasonRotation       = "rotation"
	ReasonPasswordChange = "password_change"
	ReasonPasswordReset  = "password_reset"
	ReasonAdminRevoke    = "admin_revoke"
	ReasonDeactivation   = "deactivation"
)

// # Activity Events

const (
	EventLoginSucceeded     = "login_succeeded"
	EventLoginFailed        = "login_failed"
	EventAccountLocked      = "account_locked"
	EventLoginBlocked       = "login_blocked"
	EventTokenRefreshed     = "token_refreshed"
	EventLoggedOut          = "logged_out"
	EventLoggedOutAll       = "logged_out_everywhere"
	EventRegistered         = "user_registered"
	EventPasswordChanged    = "password_changed"
	EventPasswordResetAsked = "password_reset_requested"
	EventPasswordReset      = "password_reset"
	EventSessionsRevoked    = "sessions_revoked"
	EventUserDeactivated    = "user_deactivated"
	EventAdminSeeded        = "admin_seeded"
)
