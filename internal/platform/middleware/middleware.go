// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the cross-cutting HTTP processing chain.

It acts as a series of decorators around the standard http.Handler, injecting
traceability, safety, and security into every request lifecycle.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: Structured request logging (slog).
  - Guard: Per-client rate limiting on sensitive routes.
  - Safe: Panic recovery to prevent server crashes.
  - Access: Access token authentication and the four authorization checks.

This package ensures that domain handlers can focus purely on business logic
without worrying about infrastructure-level concerns.
*/
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeep/internal/platform/respond"
)

// # Request Tracing

// RequestID attaches a correlation ID to every request for log tracing.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Check if the client already provided an ID
			requestID := request.Header.Get(constants.HeaderXRequestID)

			// 2. Generate a new one if missing (using UUID v7 for time-sortable properties)
			if requestID == "" || len(requestID) > 128 {
				uuidV7, err := uuid.NewV7()
				if err != nil {
					requestID = uuid.New().String()
				} else {
					requestID = uuidV7.String()
				}
			}

			// 3. Inject into context and response headers
			ctx := ctxutil.WithRequestID(request.Context(), requestID)
			writer.Header().Set(constants.HeaderXRequestID, requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Request Logging

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// StructuredLogger logs every request status and performance metrics.
// It also injects a request-specific logger into the context.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			startTime := time.Now()
			rid := ctxutil.GetRequestID(request.Context())
			ip := RealIP(request)

			// 1. Create a sub-logger for this specific request
			requestLogger := logger.With(
				slog.String("request_id", rid),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", ip),
			)

			// 2. Inject this logger into the context for downstream use
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			wrappedWriter := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			// 3. Proceed to downstream handlers with the enriched context.
			// Authentication runs further down the chain, so the claims are
			// published back through a holder the authenticator fills in.
			holder := &identityHolder{}
			ctx = context.WithValue(ctx, identityHolderKey{}, holder)
			next.ServeHTTP(wrappedWriter, request.WithContext(ctx))

			// 4. Final log entry after the request is finished
			latency := time.Since(startTime).Milliseconds()
			logLevel := slog.LevelInfo

			if wrappedWriter.status >= 500 {
				logLevel = slog.LevelError
			} else if wrappedWriter.status >= 400 {
				logLevel = slog.LevelWarn
			}

			// Enlist final response metrics
			logAttrs := []any{
				slog.Int("status", wrappedWriter.status),
				slog.Int64("latency_ms", latency),
				slog.String("user_agent", request.UserAgent()),
			}

			// Add user_id if the request is authenticated
			if holder.userID != "" {
				logAttrs = append(logAttrs, slog.String("user_id", holder.userID))
			}

			requestLogger.Log(ctx, logLevel, "http_request_finished", logAttrs...)
		})
	}
}

// identityHolder lets the authenticator report the caller to the request logger.
type identityHolder struct {
	userID string
}

type identityHolderKey struct{}

func recordIdentity(ctx context.Context, userID string) {
	if holder, ok := ctx.Value(identityHolderKey{}).(*identityHolder); ok {
		holder.userID = userID
	}
}

// # Rate Limiting

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP using the token bucket algorithm.
//
// Each limiter owns its client table, so different route groups can carry
// different budgets.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewRateLimiter builds a limiter allowing rps sustained requests and burst spikes per IP.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rateLimitClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Run evicts idle clients until ctx is cancelled.
func (limiter *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.evictIdle()
		case <-ctx.Done():
			// Stop the goroutine when the application shuts down
			return
		}
	}
}

func (limiter *RateLimiter) evictIdle() {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for ip, clientInfo := range limiter.clients {
		if limiter.now().Sub(clientInfo.lastSeen) > constants.RateLimitClientTTL {
			delete(limiter.clients, ip)
		}
	}
}

// Handler applies the limiter to next.
func (limiter *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

		// Identify the client by their IP address
		clientIP := RealIP(request)

		limiter.mu.Lock()
		clientInfo, found := limiter.clients[clientIP]

		// Initialize a new limiter if this is a fresh IP
		if !found {
			clientInfo = &rateLimitClient{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
			limiter.clients[clientIP] = clientInfo
		}

		// Update the activity timestamp
		now := limiter.now()
		clientInfo.lastSeen = now
		allowed := clientInfo.limiter.AllowN(now, 1)
		limiter.mu.Unlock()

		// Check if the request is allowed by the bucket
		if !allowed {
			respond.Error(writer, request, apperr.RateLimited(limiter.retryAfterSeconds()))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// retryAfterSeconds is the time for a single token to refill, rounded up.
func (limiter *RateLimiter) retryAfterSeconds() int {
	if limiter.limit <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/float64(limiter.limit))))
}

// # Reliability & Safety

// PanicRecovery recovers from panics, logs stack trace, and returns 500.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// Defer a recovery function to catch any runtime exceptions
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					// Capture the runtime stack trace for diagnostics
					stackTrace := make([]byte, 4096)
					length := runtime.Stack(stackTrace, false)

					// Retrieve the request-specific logger from context if available
					reqLogger := ctxutil.GetLogger(request.Context())
					if reqLogger == slog.Default() {
						reqLogger = logger
					}

					// Log the incident to our structured logging system
					reqLogger.ErrorContext(request.Context(), "panic_recovered",
						slog.Any("error", err),
						slog.String("stack", string(stackTrace[:length])),
					)

					// Return a safe, generic error to the client
					writeError(writer, http.StatusInternalServerError, apperr.KindInternal, "INTERNAL_ERROR", "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Middleware Helpers

// RealIP extracts client IP, respecting common proxy headers.
//
// A header value that is not an IP address is ignored, so a spoofed header
// cannot inject arbitrary text into logs or stored session metadata.
func RealIP(request *http.Request) string {

	// Check standard proxy headers first
	if ip := parseIP(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}

	// Fallback to the direct connection's address
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// parseIP returns the canonical form of value, or "" when it is not an IP.
func parseIP(value string) string {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// writeError outputs a simple JSON error payload without touching the context.
func writeError(writer http.ResponseWriter, status int, kind apperr.Kind, code, message string) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{
		constants.FieldCode:  code,
		constants.FieldKind:  string(kind),
		constants.FieldError: message,
	})
}
