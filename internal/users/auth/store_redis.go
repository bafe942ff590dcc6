// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/gatekeep/internal/platform/constants"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

func resetTokenKey(tokenHash string) string {
	return constants.RedisPrefixResetToken + tokenHash
}

/*
Save stores a reset token digest with its associated userID and TTL.

Parameters:
  - context: context.Context
  - tokenHash: string (SHA-256 digest of the token)
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Save(context context.Context, tokenHash, userID string, ttl time.Duration) error {
	if err := repository.client.Set(context, resetTokenKey(tokenHash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}
	return nil
}

/*
Consume reads and deletes the token in a single GETDEL round trip.

Description: Two concurrent consumers of the same token cannot both succeed.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - string: Owning UserID
  - error: ErrResetTokenNotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Consume(context context.Context, tokenHash string) (string, error) {
	userID, err := repository.client.GetDel(context, resetTokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrResetTokenNotFound
		}
		return "", fmt.Errorf("redis_reset_token_consume_failed: %w", err)
	}
	return userID, nil
}
