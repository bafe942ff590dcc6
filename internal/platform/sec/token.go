// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// MinSecureTokenBytes is the smallest entropy accepted for bearer secrets (256 bits).
const MinSecureTokenBytes = 32

// GenerateSecureToken reads length random bytes from [crypto/rand] and returns
// them hex-encoded.
func GenerateSecureToken(length int) (string, error) {
	return GenerateSecureTokenFrom(rand.Reader, length)
}

// GenerateSecureTokenFrom is [GenerateSecureToken] with an explicit entropy source.
func GenerateSecureTokenFrom(entropy io.Reader, length int) (string, error) {
	if length < MinSecureTokenBytes {
		return "", fmt.Errorf("sec: secure token needs at least %d bytes, got %d", MinSecureTokenBytes, length)
	}

	buffer := make([]byte, length)
	if _, err := io.ReadFull(entropy, buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex SHA-256 digest of a bearer secret.
//
// Stores persist only this digest, so a leaked table cannot be replayed.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
