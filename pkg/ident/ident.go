// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ident canonicalizes login identifiers (usernames and emails).
//
// # Usage
//
// Every identifier is normalized before it is stored and before it is looked
// up, so "Admin", "ADMIN" and the full-width "ａｄｍｉｎ" all resolve to the
// same account and cannot be registered twice.
package ident

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical form of an identifier.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (folds compatibility forms: full-width → ASCII).
// 3. Applies Unicode case folding.
// 4. Re-normalizes to NFKC, since folding can denormalize some sequences.
func Normalize(identifier string) string {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return ""
	}

	// cases.Caser is stateful, so a fresh chain is built per call.
	chain := transform.Chain(norm.NFKC, cases.Fold(), norm.NFKC)
	result, _, err := transform.String(chain, trimmed)
	if err != nil {
		return strings.ToLower(trimmed)
	}
	return result
}

// IsEmail reports whether the identifier is shaped like an email address.
// Usernames never contain "@", so the distinction is unambiguous.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}
