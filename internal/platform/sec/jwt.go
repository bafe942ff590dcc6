// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing, random
// token generation, role data) from the domain logic. Access tokens are signed
// JWTs verified without a store lookup. Refresh tokens are opaque random values
// that only the store can validate; they are never signed by this package.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted length, in bytes, of an HMAC signing secret.
const MinSecretLength = 32

// Typed verification failures. Every error returned by [TokenCodec.Verify]
// wraps exactly one of these.
var (
	ErrTokenExpired      = errors.New("sec: token expired")
	ErrTokenMalformed    = errors.New("sec: token malformed")
	ErrSignatureMismatch = errors.New("sec: token signature mismatch")
)

// ErrWeakSecret is returned when a signing secret is shorter than [MinSecretLength].
var ErrWeakSecret = fmt.Errorf("sec: signing secret must be at least %d bytes", MinSecretLength)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Identifier, and Role directly inside the JWT,
// [middleware.Authenticate] can reconstruct the active user context WITHOUT
// querying the database on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID      string   `json:"uid"`
	Identifier  string   `json:"unm"`
	Role        string   `json:"rol"`
	Permissions []string `json:"prm,omitempty"`
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c *AuthClaims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *AuthClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenCodec signs and verifies HS256 access tokens.
//
// It is a pure function of its inputs: the secret, the issuer, and the clock.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenCodec creates a codec bound to one signing context.
//
// Access tokens must use a secret that is not shared with any other signing context.
func NewTokenCodec(secret []byte, issuer string) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &TokenCodec{
		secret: key,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads the current time from now.
func (codec *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *codec
	clone.now = now
	return &clone
}

// Sign stamps issuer, subject, iat and exp onto the claims and returns the
// compact token together with its effective expiry.
func (codec *TokenCodec) Sign(claims AuthClaims, timeToLive time.Duration) (string, time.Time, error) {
	if timeToLive <= 0 {
		return "", time.Time{}, fmt.Errorf("sec: token ttl must be positive, got %s", timeToLive)
	}

	currentTime := codec.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    codec.issuer,
		IssuedAt:  jwt.NewNumericDate(currentTime),
		ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, claims.ExpiresAt.Time, nil
}

// Verify checks the signature and validity of a token string.
//
// Failures wrap [ErrTokenExpired], [ErrSignatureMismatch] or [ErrTokenMalformed].
func (codec *TokenCodec) Verify(tokenString string) (*AuthClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(codec.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(codec.now),
	)

	claims := &AuthClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return codec.secret, nil
	})

	if err != nil {
		return nil, classifyJWTError(token, err)
	}

	if !token.Valid || claims.UserID == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing required claims", ErrTokenMalformed)
	}

	return claims, nil
}

// classifyJWTError maps library failures onto the codec's typed failures.
//
// A token announcing any algorithm other than HS256 is malformed rather than
// mismatched: no recomputation with our secret ever took place.
func classifyJWTError(token *jwt.Token, err error) error {
	foreignAlgorithm := token != nil && token.Method != nil && token.Method.Alg() != jwt.SigningMethodHS256.Alg()

	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid) && !foreignAlgorithm:
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
