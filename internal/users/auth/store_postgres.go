// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/gatekeep/internal/platform/database/schema"
	"github.com/taibuivan/gatekeep/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var userColumns = schema.UserAccount.ColumnList()

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: ErrDuplicateUser on a unique violation, otherwise database errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, role, isactive, failedloginattempts, lockeduntil, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, dberr.ConstraintName(err))
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + schema.UserAccount.Table + ` WHERE id = $1`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByIdentifier retrieves a user whose username or email equals the identifier.

Description: Both columns hold normalized values, so a plain equality match
is case and width insensitive.

Parameters:
  - context: context.Context
  - identifier: string (Normalized username or email)

Returns:
  - *User: Hydrated account entity
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) FindByIdentifier(context context.Context, identifier string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + schema.UserAccount.Table + ` WHERE username = $1 OR email = $1 LIMIT 1`

	user, err := scanUser(repository.pool.QueryRow(context, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_identifier_failed: %w", err)
	}

	return user, nil
}

/*
UpdatePassword replaces the password hash of a user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string
  - now: time.Time

Returns:
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string, now time.Time) error {
	const query = "UPDATE users.account SET passwordhash = $2, updatedat = $3 WHERE id = $1"

	tag, err := repository.pool.Exec(context, query, userID, newHash, now)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

/*
RecordLoginFailure increments the failure counter in a single statement.

Description: A lock that has already expired is discarded and the count
restarts at one. Reaching the threshold stamps lockeduntil.

Parameters:
  - context: context.Context
  - userID: string
  - threshold: int
  - cooldown: time.Duration
  - now: time.Time

Returns:
  - *LockoutState: Counter and lock after the increment
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) RecordLoginFailure(context context.Context, userID string, threshold int, cooldown time.Duration, now time.Time) (*LockoutState, error) {
	const query = `
		WITH previous AS (
			SELECT id,
				CASE WHEN lockeduntil IS NOT NULL AND lockeduntil <= $3 THEN 1
				     ELSE failedloginattempts + 1 END AS attempts,
				CASE WHEN lockeduntil IS NOT NULL AND lockeduntil <= $3 THEN NULL
				     ELSE lockeduntil END AS lock
			FROM users.account
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE users.account AS account SET
			failedloginattempts = previous.attempts,
			lockeduntil = CASE WHEN previous.attempts >= $2 THEN $4 ELSE previous.lock END,
			updatedat = $3
		FROM previous
		WHERE account.id = previous.id
		RETURNING account.failedloginattempts, account.lockeduntil`

	state := &LockoutState{}
	err := repository.pool.QueryRow(context, query, userID, threshold, now, now.Add(cooldown)).Scan(
		&state.FailedAttempts,
		&state.LockedUntil,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres_user_repo_record_login_failure_failed: %w", err)
	}

	return state, nil
}

/*
ResetLoginFailures clears the failure counter and any lock.
*/
func (repository *PostgresUserRepository) ResetLoginFailures(context context.Context, userID string, now time.Time) error {
	const query = `
		UPDATE users.account
		SET failedloginattempts = 0, lockeduntil = NULL, updatedat = $2
		WHERE id = $1 AND (failedloginattempts <> 0 OR lockeduntil IS NOT NULL)`

	if _, err := repository.pool.Exec(context, query, userID, now); err != nil {
		return fmt.Errorf("postgres_user_repo_reset_login_failures_failed: %w", err)
	}
	return nil
}

/*
SetActive enables or disables an account.

Returns:
  - error: ErrUserNotFound or database errors
*/
func (repository *PostgresUserRepository) SetActive(context context.Context, userID string, active bool, now time.Time) error {
	const query = "UPDATE users.account SET isactive = $2, updatedat = $3 WHERE id = $1"

	tag, err := repository.pool.Exec(context, query, userID, active, now)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_active_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements RefreshTokenRepository on users.refreshtoken.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

var refreshTokenColumns = schema.UserRefreshToken.ColumnList()

func scanRefreshToken(row pgx.Row) (*RefreshToken, error) {
	token := &RefreshToken{}
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Device.UserAgent,
		&token.Device.IPAddress,
		&token.Device.DeviceClass,
		&token.IsActive,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.LastUsedAt,
		&token.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(context context.Context, executor execer, token *RefreshToken) error {
	const query = `
		INSERT INTO users.refreshtoken (
			id, userid, tokenhash, useragent, ipaddress, deviceclass, isactive, expiresat, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := executor.Exec(context, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.Device.UserAgent,
		token.Device.IPAddress,
		token.Device.DeviceClass,
		token.IsActive,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

/*
Create persists a new refresh token record.

Parameters:
  - context: context.Context
  - token: *RefreshToken

Returns:
  - error: ErrDuplicateRefreshToken or storage failures
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	if err := insertRefreshToken(context, repository.pool, token); err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateRefreshToken
		}
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}
	return nil
}

/*
FindActive resolves a token digest into a record that is valid at now.

Parameters:
  - context: context.Context
  - tokenHash: string
  - now: time.Time

Returns:
  - *RefreshToken: Hydrated token metadata
  - error: ErrRefreshTokenNotFound or execution errors
*/
func (repository *PostgresRefreshTokenRepository) FindActive(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM ` + schema.UserRefreshToken.Table + `
		WHERE tokenhash = $1 AND isactive = TRUE AND expiresat > $2`

	token, err := scanRefreshToken(repository.pool.QueryRow(context, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_find_failed: %w", err)
	}

	return token, nil
}

/*
Touch stamps lastusedat on a token that is still valid at now.

Description: The validity check and the write are one conditional UPDATE.

Returns:
  - *RefreshToken: The updated record
  - error: ErrRefreshTokenNotFound when no valid row matched
*/
func (repository *PostgresRefreshTokenRepository) Touch(context context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	query := `UPDATE users.refreshtoken SET lastusedat = $2
		WHERE tokenhash = $1 AND isactive = TRUE AND expiresat > $2
		RETURNING ` + refreshTokenColumns

	token, err := scanRefreshToken(repository.pool.QueryRow(context, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_touch_failed: %w", err)
	}

	return token, nil
}

/*
Rotate consumes a valid token and inserts its replacement in one transaction.

Description: The deactivation is conditional on the old token still being
valid, so of two concurrent rotations of the same value only one commits.

Parameters:
  - context: context.Context
  - oldTokenHash: string
  - replacement: *RefreshToken
  - now: time.Time

Returns:
  - *RefreshToken: The consumed token
  - error: ErrRefreshTokenNotFound or transaction failures
*/
func (repository *PostgresRefreshTokenRepository) Rotate(context context.Context, oldTokenHash string, replacement *RefreshToken, now time.Time) (*RefreshToken, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_rotate_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	// 1. Consume the old token
	query := `UPDATE users.refreshtoken SET isactive = FALSE, lastusedat = $2, revokedat = $2
		WHERE tokenhash = $1 AND isactive = TRUE AND expiresat > $2
		RETURNING ` + refreshTokenColumns

	consumed, err := scanRefreshToken(transaction.QueryRow(context, query, oldTokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_rotate_consume_failed: %w", err)
	}

	// 2. Persist the replacement
	if err := insertRefreshToken(context, transaction, replacement); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, ErrDuplicateRefreshToken
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_rotate_insert_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_rotate_commit_failed: %w", err)
	}

	return consumed, nil
}

/*
Revoke deactivates a single token.

Returns:
  - bool: true when an active token was flipped to inactive
  - error: Revocation failures
*/
func (repository *PostgresRefreshTokenRepository) Revoke(context context.Context, tokenHash string, now time.Time) (bool, error) {
	const query = "UPDATE users.refreshtoken SET isactive = FALSE, revokedat = $2 WHERE tokenhash = $1 AND isactive = TRUE"

	tag, err := repository.pool.Exec(context, query, tokenHash, now)
	if err != nil {
		return false, fmt.Errorf("postgres_refresh_token_repo_revoke_failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

/*
RevokeAllForUser deactivates all active tokens of a user.

Returns:
  - int64: Number of tokens deactivated
  - error: Batch revocation failures
*/
func (repository *PostgresRefreshTokenRepository) RevokeAllForUser(context context.Context, userID string, now time.Time) (int64, error) {
	const query = "UPDATE users.refreshtoken SET isactive = FALSE, revokedat = $2 WHERE userid = $1 AND isactive = TRUE"

	tag, err := repository.pool.Exec(context, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_revoke_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
ListActiveForUser returns the user's valid tokens ordered newest first.
*/
func (repository *PostgresRefreshTokenRepository) ListActiveForUser(context context.Context, userID string, now time.Time) ([]RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM ` + schema.UserRefreshToken.Table + `
		WHERE userid = $1 AND isactive = TRUE AND expiresat > $2
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_list_failed: %w", err)
	}
	defer rows.Close()

	tokens := make([]RefreshToken, 0)
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_refresh_token_repo_list_scan_failed: %w", err)
		}
		tokens = append(tokens, *token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_refresh_token_repo_list_failed: %w", err)
	}

	return tokens, nil
}

/*
DeleteExpired permanently removes every token that expired before now.

Description: Cleanup task to reclaim storage, regardless of isactive.

Returns:
  - int64: Rows deleted
  - error: Cleanup failures
*/
func (repository *PostgresRefreshTokenRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	const query = "DELETE FROM users.refreshtoken WHERE expiresat < $1"

	tag, err := repository.pool.Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_refresh_token_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
