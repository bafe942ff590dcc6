// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"time"

	"github.com/taibuivan/gatekeep/internal/platform/sec"
)

// AccessToken is a signed access token together with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// AccessTokenIssuer turns a user record into a short-lived signed token.
type AccessTokenIssuer struct {
	codec            *sec.TokenCodec
	ttl              time.Duration
	embedPermissions bool
}

// NewAccessTokenIssuer creates an issuer.
//
// When embedPermissions is set the resolved permission list travels inside
// the token; otherwise verifiers derive it from the role.
func NewAccessTokenIssuer(codec *sec.TokenCodec, ttl time.Duration, embedPermissions bool) *AccessTokenIssuer {
	return &AccessTokenIssuer{codec: codec, ttl: ttl, embedPermissions: embedPermissions}
}

/*
Issue signs an access token for the user.

Returns:
  - AccessToken: Compact token and its exp
  - error: ErrUnknownRole when the role is absent from the role table, or signing failures
*/
func (issuer *AccessTokenIssuer) Issue(user *User) (AccessToken, error) {
	permissions, ok := sec.PermissionsFor(user.Role)
	if !ok {
		return AccessToken{}, fmt.Errorf("%w: %q", ErrUnknownRole, user.Role)
	}

	claims := sec.AuthClaims{
		UserID:     user.ID,
		Identifier: user.Username,
		Role:       user.Role.String(),
	}
	if issuer.embedPermissions {
		claims.Permissions = permissions.Strings()
	}

	token, expiresAt, err := issuer.codec.Sign(claims, issuer.ttl)
	if err != nil {
		return AccessToken{}, err
	}

	return AccessToken{Token: token, ExpiresAt: expiresAt}, nil
}

// TTL returns the configured access token lifetime.
func (issuer *AccessTokenIssuer) TTL() time.Duration {
	return issuer.ttl
}
