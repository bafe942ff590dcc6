// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"errors"
	"net/http"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/authz"
	"github.com/taibuivan/gatekeep/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/gatekeep/internal/platform/request"
	"github.com/taibuivan/gatekeep/internal/platform/respond"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the token codec,
// allowing us to easily inject fakes during unit testing.
type TokenVerifier interface {
	Verify(token string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] and the derived [authz.Subject] into the request context.
//
// # Status mapping
//   - Expired token: 401 TOKEN_EXPIRED, the client should refresh.
//   - Malformed token or signature mismatch: 403.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, wellFormed := requestutil.BearerToken(request)

			// ── 1. Format Validation ──────────────────────────────────────────
			if !wellFormed {
				respond.Error(writer, request, apperr.MissingToken("Invalid authorization format"))
				return
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(token)
			if err != nil {
				respond.Error(writer, request, tokenError(err))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctx = ctxutil.WithSubject(ctx, authz.NewSubject(claims))
			recordIdentity(ctx, claims.UserID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if _, ok := ctxutil.GetSubject(request.Context()); !ok {
			respond.Error(writer, request, apperr.MissingToken("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks callers below the required role in the hierarchy.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return guard(func(subject authz.Subject, _ *http.Request) error {
		return authz.EnsureMinimumRole(subject, role)
	})
}

// RequireAnyRole admits only callers whose role is exactly one of roles.
//
// Unlike [RequireRole], a higher role does not inherit access.
func RequireAnyRole(roles ...sec.Role) func(http.Handler) http.Handler {
	return guard(func(subject authz.Subject, _ *http.Request) error {
		return authz.EnsureRoleAllowed(subject, roles...)
	})
}

// RequirePermission admits only callers holding every listed permission.
func RequirePermission(permissions ...sec.Permission) func(http.Handler) http.Handler {
	return guard(func(subject authz.Subject, _ *http.Request) error {
		return authz.EnsurePermission(subject, permissions...)
	})
}

// RequireOwnerOrAdmin admits the user named by the URL parameter, or any admin.
func RequireOwnerOrAdmin(param string) func(http.Handler) http.Handler {
	return guard(func(subject authz.Subject, request *http.Request) error {
		return authz.EnsureOwnerOrElevated(subject, requestutil.Param(request, param))
	})
}

// guard adapts an authorization check into middleware.
func guard(check func(authz.Subject, *http.Request) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			subject, ok := ctxutil.GetSubject(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if !ok {
				respond.Error(writer, request, apperr.MissingToken("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if err := check(subject, request); err != nil {
				respond.Error(writer, request, authorizationError(err))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// tokenError maps codec failures onto exactly one client-facing error.
func tokenError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		return apperr.TokenExpired().WithCause(err)
	case errors.Is(err, sec.ErrSignatureMismatch):
		return apperr.SignatureMismatch().WithCause(err)
	default:
		return apperr.TokenMalformed().WithCause(err)
	}
}

// authorizationError maps authorization engine failures onto client-facing errors.
func authorizationError(err error) *apperr.AppError {
	if errors.Is(err, authz.ErrInvalidRole) {
		return apperr.InvalidRole().WithCause(err)
	}
	return apperr.Forbidden("Insufficient permissions").WithCause(err)
}
