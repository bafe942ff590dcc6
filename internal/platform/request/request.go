// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/authz"
	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies; credential payloads are tiny.
const maxBodyBytes = 1 << 16

/*
DecodeJSON reads the request body and decodes it into the target structure.

An empty body decodes to the zero value so that handlers can report missing
fields through the validator rather than a generic JSON error.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if request.Body == nil {
		return nil
	}

	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
BearerToken extracts the token from an "Authorization: Bearer <token>" header.

Returns:
  - string: The raw token, empty when the header is absent
  - bool: false when a header is present but not a well-formed bearer credential
*/
func BearerToken(request *http.Request) (string, bool) {
	header := strings.TrimSpace(request.Header.Get(constants.HeaderAuthorization))
	if header == "" {
		return "", true
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) || token == "" {
		return "", false
	}
	return token, true
}

/*
Claims extracts the authenticated user claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns the user claims.

Returns:
  - *sec.AuthClaims: The authenticated user claims
  - error: apperr.MissingToken if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {

	// Get user claims
	claims := ctxutil.GetAuthUser(request.Context())

	// If the user is not authenticated, return an error
	if claims == nil {
		return nil, apperr.MissingToken("Authentication required")
	}

	return claims, nil
}

/*
RequiredSubject returns the authorization subject of the current caller.

Returns:
  - authz.Subject: Caller identity, role and permissions
  - error: apperr.MissingToken if not authenticated
*/
func RequiredSubject(request *http.Request) (authz.Subject, error) {
	subject, ok := ctxutil.GetSubject(request.Context())
	if !ok {
		return authz.Subject{}, apperr.MissingToken("Authentication required")
	}
	return subject, nil
}

/*
RequiredUserID returns the User ID of the currently logged-in user.

Returns:
  - string: User UUID
  - error: apperr.MissingToken if not authenticated
*/
func RequiredUserID(request *http.Request) (string, error) {

	// Get user claims
	claims, err := RequiredClaims(request)

	// If the user is not authenticated, return an error
	if err != nil {
		return "", err
	}

	return claims.UserID, nil
}
