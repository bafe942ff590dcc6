// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/gatekeep/pkg/pointer"
)

// # In-Memory Repositories
//
// Process-local implementations used by STORAGE_DRIVER=memory and by tests.
// Each repository guards its maps with one mutex, so every check-and-mutate
// method is atomic in the same sense as the conditional SQL updates.

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*User)}
}

func cloneUser(user *User) *User {
	clone := *user
	clone.LockedUntil = pointer.Clone(user.LockedUntil)
	return &clone
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, ok := repository.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (repository *MemoryUserRepository) FindByIdentifier(_ context.Context, identifier string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if user.Username == identifier || user.Email == identifier {
			return cloneUser(user), nil
		}
	}
	return nil, ErrUserNotFound
}

func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if existing.ID == user.ID || existing.Username == user.Username || existing.Email == user.Email {
			return ErrDuplicateUser
		}
	}
	repository.users[user.ID] = cloneUser(user)
	return nil
}

func (repository *MemoryUserRepository) UpdatePassword(_ context.Context, userID, newHash string, now time.Time) error {
	return repository.mutate(userID, func(user *User) {
		user.PasswordHash = newHash
		user.UpdatedAt = now
	})
}

func (repository *MemoryUserRepository) RecordLoginFailure(_ context.Context, userID string, threshold int, cooldown time.Duration, now time.Time) (*LockoutState, error) {
	var state LockoutState
	err := repository.mutate(userID, func(user *User) {
		if user.LockedUntil != nil && !now.Before(*user.LockedUntil) {
			user.FailedLoginAttempts = 0
			user.LockedUntil = nil
		}

		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= threshold {
			user.LockedUntil = pointer.To(now.Add(cooldown))
		}
		user.UpdatedAt = now

		state.FailedAttempts = user.FailedLoginAttempts
		state.LockedUntil = pointer.Clone(user.LockedUntil)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (repository *MemoryUserRepository) ResetLoginFailures(_ context.Context, userID string, now time.Time) error {
	return repository.mutate(userID, func(user *User) {
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.UpdatedAt = now
	})
}

func (repository *MemoryUserRepository) SetActive(_ context.Context, userID string, active bool, now time.Time) error {
	return repository.mutate(userID, func(user *User) {
		user.IsActive = active
		user.UpdatedAt = now
	})
}

func (repository *MemoryUserRepository) mutate(userID string, apply func(*User)) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	apply(user)
	return nil
}

// MemoryRefreshTokenRepository keeps refresh tokens in process memory, keyed by digest.
type MemoryRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

// NewMemoryRefreshTokenRepository creates an empty in-memory refresh token repository.
func NewMemoryRefreshTokenRepository() *MemoryRefreshTokenRepository {
	return &MemoryRefreshTokenRepository{tokens: make(map[string]*RefreshToken)}
}

func cloneRefreshToken(token *RefreshToken) *RefreshToken {
	clone := *token
	clone.Value = ""
	clone.LastUsedAt = pointer.Clone(token.LastUsedAt)
	clone.RevokedAt = pointer.Clone(token.RevokedAt)
	return &clone
}

func (repository *MemoryRefreshTokenRepository) Create(_ context.Context, token *RefreshToken) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, exists := repository.tokens[token.TokenHash]; exists {
		return ErrDuplicateRefreshToken
	}
	repository.tokens[token.TokenHash] = cloneRefreshToken(token)
	return nil
}

func (repository *MemoryRefreshTokenRepository) FindActive(_ context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	token, ok := repository.tokens[tokenHash]
	if !ok || !token.ValidAt(now) {
		return nil, ErrRefreshTokenNotFound
	}
	return cloneRefreshToken(token), nil
}

func (repository *MemoryRefreshTokenRepository) Touch(_ context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	token, ok := repository.tokens[tokenHash]
	if !ok || !token.ValidAt(now) {
		return nil, ErrRefreshTokenNotFound
	}
	token.LastUsedAt = pointer.To(now)
	return cloneRefreshToken(token), nil
}

func (repository *MemoryRefreshTokenRepository) Rotate(_ context.Context, oldTokenHash string, replacement *RefreshToken, now time.Time) (*RefreshToken, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	token, ok := repository.tokens[oldTokenHash]
	if !ok || !token.ValidAt(now) {
		return nil, ErrRefreshTokenNotFound
	}
	if _, exists := repository.tokens[replacement.TokenHash]; exists {
		return nil, ErrDuplicateRefreshToken
	}

	token.IsActive = false
	token.LastUsedAt = pointer.To(now)
	token.RevokedAt = pointer.To(now)
	repository.tokens[replacement.TokenHash] = cloneRefreshToken(replacement)

	return cloneRefreshToken(token), nil
}

func (repository *MemoryRefreshTokenRepository) Revoke(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	token, ok := repository.tokens[tokenHash]
	if !ok || !token.IsActive {
		return false, nil
	}
	token.IsActive = false
	token.RevokedAt = pointer.To(now)
	return true, nil
}

func (repository *MemoryRefreshTokenRepository) RevokeAllForUser(_ context.Context, userID string, now time.Time) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var count int64
	for _, token := range repository.tokens {
		if token.UserID != userID || !token.IsActive {
			continue
		}
		token.IsActive = false
		token.RevokedAt = pointer.To(now)
		count++
	}
	return count, nil
}

func (repository *MemoryRefreshTokenRepository) ListActiveForUser(_ context.Context, userID string, now time.Time) ([]RefreshToken, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	tokens := make([]RefreshToken, 0)
	for _, token := range repository.tokens {
		if token.UserID == userID && token.ValidAt(now) {
			tokens = append(tokens, *cloneRefreshToken(token))
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (repository *MemoryRefreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var count int64
	for hash, token := range repository.tokens {
		if token.ExpiresAt.Before(now) {
			delete(repository.tokens, hash)
			count++
		}
	}
	return count, nil
}

// MemoryResetTokenRepository keeps reset tokens in process memory with lazy expiry.
type MemoryResetTokenRepository struct {
	mu      sync.Mutex
	entries map[string]resetEntry
	now     func() time.Time
}

type resetEntry struct {
	userID    string
	expiresAt time.Time
}

// NewMemoryResetTokenRepository creates an in-memory reset token repository.
func NewMemoryResetTokenRepository(now func() time.Time) *MemoryResetTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryResetTokenRepository{entries: make(map[string]resetEntry), now: now}
}

func (repository *MemoryResetTokenRepository) Save(_ context.Context, tokenHash, userID string, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.entries[tokenHash] = resetEntry{userID: userID, expiresAt: repository.now().Add(ttl)}
	return nil
}

func (repository *MemoryResetTokenRepository) Consume(_ context.Context, tokenHash string) (string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry, ok := repository.entries[tokenHash]
	delete(repository.entries, tokenHash)
	if !ok || !repository.now().Before(entry.expiresAt) {
		return "", ErrResetTokenNotFound
	}
	return entry.userID, nil
}
