// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes and compares passwords with bcrypt.
//
// Plain-text passwords are never stored or compared directly; every check goes
// through [bcrypt.CompareHashAndPassword], which runs in constant time with
// respect to the candidate.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost. Out-of-range costs fall
// back to [bcrypt.DefaultCost].
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plain-text password.
func (hasher *BcryptHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Compare reports whether the plain-text password matches the stored hash.
func (hasher *BcryptHasher) Compare(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
