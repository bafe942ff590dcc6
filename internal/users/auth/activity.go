// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/gatekeep/internal/platform/ctxutil"
)

// # Collaborators
//
// The service reports what happened through three narrow interfaces. None of
// them may receive passwords, password hashes or refresh token values.

// Observer receives counters for security-relevant outcomes.
// [metrics.Metrics] satisfies it.
type Observer interface {
	LoginAttempt(outcome string)
	RefreshAttempt(outcome string)
	Logout()
	RefreshTokenIssued()
	RefreshTokensRevokedBy(reason string, count int64)
	RefreshTokensSweptCount(count int64)
}

type nopObserver struct{}

func (nopObserver) LoginAttempt(string)                  {}
func (nopObserver) RefreshAttempt(string)                {}
func (nopObserver) Logout()                              {}
func (nopObserver) RefreshTokenIssued()                  {}
func (nopObserver) RefreshTokensRevokedBy(string, int64) {}
func (nopObserver) RefreshTokensSweptCount(int64)        {}

// ActivityLogger records security events for auditing. Persisting them is
// outside this package.
type ActivityLogger interface {
	Record(ctx context.Context, event, userID string, attrs ...slog.Attr)
}

// SlogActivityLogger writes activity events as structured log lines.
type SlogActivityLogger struct {
	logger *slog.Logger
}

// NewSlogActivityLogger creates an activity logger on top of logger.
func NewSlogActivityLogger(logger *slog.Logger) *SlogActivityLogger {
	return &SlogActivityLogger{logger: logger.With(slog.String("component", "activity"))}
}

// Record implements ActivityLogger.
func (activity *SlogActivityLogger) Record(ctx context.Context, event, userID string, attrs ...slog.Attr) {
	base := []slog.Attr{slog.String("event", event)}
	if userID != "" {
		base = append(base, slog.String("user_id", userID))
	}
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		base = append(base, slog.String("request_id", requestID))
	}
	activity.logger.LogAttrs(ctx, slog.LevelInfo, "security_event", append(base, attrs...)...)
}

// PasswordResetMail is handed to the Mailer once per reset request.
type PasswordResetMail struct {
	To        string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Mailer delivers password reset tokens. Templates and transport are its concern.
type Mailer interface {
	SendPasswordReset(ctx context.Context, mail PasswordResetMail) error
}

// LogMailer is the development Mailer. It logs that a reset was requested
// but never the token itself.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendPasswordReset implements Mailer.
func (mailer *LogMailer) SendPasswordReset(ctx context.Context, mail PasswordResetMail) error {
	mailer.logger.InfoContext(ctx, "password_reset_mail_queued",
		slog.String("to", mail.To),
		slog.Time("expires_at", mail.ExpiresAt),
	)
	return nil
}
