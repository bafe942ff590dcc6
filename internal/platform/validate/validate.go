// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Handlers validate request payloads with it before calling a service, and
// services use it for the few checks that must hold for every caller. Storage
// never imports it.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
)

var (
	// usernameRegex matches handles: letters, digits, dots, underscores and hyphens.
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N}._-]*$`)
	// uuidRegex matches a UUIDv4 or UUIDv7 string.
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// # Account Limits

const (
	// MinPasswordLength is the shortest password accepted for any account.
	MinPasswordLength = 8

	// MaxPasswordLength keeps inputs within bcrypt's 72 byte limit.
	MaxPasswordLength = 72

	// MinUsernameLength and MaxUsernameLength bound account handles.
	MinUsernameLength = 3
	MaxUsernameLength = 32

	// MaxEmailLength follows the RFC 5321 path limit.
	MaxEmailLength = 254
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Range fails if the value is outside the [min, max] range (inclusive).
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return v
}

// Email fails if the value is not a valid RFC 5322 email address.
func (v *Validator) Email(field, value string) *Validator {
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Username fails if the value is not a valid account handle.
//
// # Format
//
// Handles start with a letter or digit and may contain letters, digits,
// dots, underscores and hyphens. The "@" sign is reserved for emails so that
// a login identifier is never ambiguous.
func (v *Validator) Username(field, value string) *Validator {
	if !usernameRegex.MatchString(value) {
		v.add(field, "Must contain only letters, digits, dots, underscores and hyphens")
	}
	return v
}

// Password fails if the value is shorter than min or lacks both a letter and a digit.
func (v *Validator) Password(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
		return v
	}

	var hasLetter, hasDigit bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		v.add(field, "Must contain at least one letter and one digit")
	}
	return v
}

// AccountHandle applies every rule a stored username must satisfy.
func (v *Validator) AccountHandle(field, value string) *Validator {
	return v.Required(field, value).
		MinLen(field, value, MinUsernameLength).
		MaxLen(field, value, MaxUsernameLength).
		Username(field, value)
}

// AccountEmail applies every rule a stored email must satisfy.
func (v *Validator) AccountEmail(field, value string) *Validator {
	return v.Required(field, value).
		MaxLen(field, value, MaxEmailLength).
		Email(field, value)
}

// AccountPassword applies the password strength and bcrypt length rules.
func (v *Validator) AccountPassword(field, value string) *Validator {
	return v.Required(field, value).
		Password(field, value, MinPasswordLength).
		MaxLen(field, value, MaxPasswordLength)
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string) *Validator {
	lower := strings.ToLower(value)
	if !uuidRegex.MatchString(lower) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom ("score", score < 1 || score > 10, "Must be between 1 and 10")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method. Call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// RequiredError is a shortcut to create a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}
