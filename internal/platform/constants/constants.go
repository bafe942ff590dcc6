// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, header names, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: IP tracking TTLs for the per-client limiter.
  - Security: cookie configuration and header names.

Security parameters (secrets, token lifetimes, lockout policy) are deliberately
absent: they live in [config.Config] and are injected at startup.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "gatekeep-api"
	AppVersion = "0.1.0-dev"
)

// # Routing

const (
	// APIPrefix is the mount point of every versioned API route.
	APIPrefix = "/api/v1"

	// AuthPath is the mount point of the authentication routes, relative to [APIPrefix].
	AuthPath = "/auth"

	// UsersPath is the mount point of the user administration routes, relative to [APIPrefix].
	UsersPath = "/users"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// StoreWriteTimeout bounds store writes that outlive a cancelled request.
	StoreWriteTimeout = 5 * time.Second

	// SweepTimeout bounds a single expired refresh token sweep.
	SweepTimeout = 1 * time.Minute
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// BearerScheme is the Authorization header scheme for access tokens.
	BearerScheme = "Bearer"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath is the scoped path for the refresh token cookie.
	RefreshTokenCookiePath = APIPrefix + AuthPath
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderUserAgent     = "User-Agent"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldKind    = "kind"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Key Taxonomy)

const (
	RedisPrefixResetToken = "auth:reset_token:"
)
