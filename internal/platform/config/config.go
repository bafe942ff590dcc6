// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
loaded first through 'joho/godotenv' when present; real environment variables
always win over the file.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.
  - Fail Fast: [Config.Validate] rejects weak secrets and nonsensical values at startup.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/taibuivan/gatekeep/internal/platform/apperr"
	"github.com/taibuivan/gatekeep/internal/platform/validate"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

const (
	minSecretLength     = 32
	minRefreshTokenSize = 32

	// maxEmbeddedPermissionsTTL bounds how stale embedded permissions may become.
	maxEmbeddedPermissionsTTL = 15 * time.Minute
)

// # Configuration Schema

// Config holds all runtime configuration for the Gatekeep API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StorageDriver selects the credential and refresh token backend.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS"   envDefault:"25"`
	DBMinConns    int32  `env:"DB_MIN_CONNS"   envDefault:"5"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), used for password reset tokens
	RedisURL string `env:"REDIS_URL"`

	// Access tokens
	JWTAccessSecret             string        `env:"JWT_ACCESS_SECRET,required,unset"`
	JWTIssuer                   string        `env:"JWT_ISSUER"                     envDefault:"gatekeep"`
	AccessTokenTTL              time.Duration `env:"ACCESS_TOKEN_TTL"               envDefault:"15m"`
	AccessTokenEmbedPermissions bool          `env:"ACCESS_TOKEN_EMBED_PERMISSIONS" envDefault:"false"`

	// Refresh tokens
	RefreshTokenTTLDays  int  `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	RefreshTokenBytes    int  `env:"REFRESH_TOKEN_BYTES"    envDefault:"32"`
	RefreshTokenRotation bool `env:"REFRESH_TOKEN_ROTATION" envDefault:"false"`
	RefreshTokenCookie   bool `env:"REFRESH_TOKEN_COOKIE"   envDefault:"false"`

	// Brute-force protection
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutCooldown  time.Duration `env:"LOCKOUT_COOLDOWN"  envDefault:"15m"`

	// Password handling
	BcryptCost    int           `env:"BCRYPT_COST"     envDefault:"10"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// SweepSchedule is a cron spec for deleting expired refresh tokens.
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@daily"`

	// Per-IP rate limiting on the authentication endpoints
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS"   envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// Optional administrator created at startup when absent
	SeedAdminUsername string `env:"SEED_ADMIN_USERNAME"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD,unset"`
}

// # Configuration Loading

// Load reads an optional .env file, then parses environment variables into a [Config].
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is [Load] with explicit dotenv paths. Missing files are skipped.
func LoadFiles(paths ...string) (*Config, error) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
		}
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTAccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTLDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if c.RefreshTokenBytes < minRefreshTokenSize {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_BYTES must be at least %d", minRefreshTokenSize))
	}
	if c.LockoutThreshold <= 0 {
		errs = append(errs, errors.New("LOCKOUT_THRESHOLD must be positive"))
	}
	if c.LockoutCooldown <= 0 {
		errs = append(errs, errors.New("LOCKOUT_COOLDOWN must be positive"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive"))
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("SWEEP_SCHEDULE is invalid: %w", err))
	}

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage driver"))
		}
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the postgres storage driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory))
	}

	if c.SeedAdminUsername != "" || c.SeedAdminEmail != "" || c.SeedAdminPassword != "" {
		errs = append(errs, c.validateSeedAdmin()...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// validateSeedAdmin holds a configured seed account to the registration rules.
// Setting any SEED_ADMIN_* variable requires all three.
func (c *Config) validateSeedAdmin() []error {
	validator := &validate.Validator{}
	validator.AccountHandle("SEED_ADMIN_USERNAME", c.SeedAdminUsername).
		AccountEmail("SEED_ADMIN_EMAIL", c.SeedAdminEmail).
		AccountPassword("SEED_ADMIN_PASSWORD", c.SeedAdminPassword)

	appErr := apperr.As(validator.Err())
	if appErr == nil {
		return nil
	}

	errs := make([]error, 0, len(appErr.Details))
	for _, detail := range appErr.Details {
		errs = append(errs, fmt.Errorf("%s: %s", detail.Field, detail.Message))
	}
	return errs
}

// RefreshTokenTTL converts the day-based refresh lifetime into a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// EmbedPermissions reports whether permissions should be signed into access tokens.
//
// Embedding is only honoured for short lifetimes, which bounds how long a
// revoked permission can remain usable.
func (c *Config) EmbedPermissions() bool {
	return c.AccessTokenEmbedPermissions && c.AccessTokenTTL <= maxEmbeddedPermissionsTTL
}

// HasSeedAdmin reports whether a startup administrator is configured.
func (c *Config) HasSeedAdmin() bool {
	return c.SeedAdminUsername != "" && c.SeedAdminEmail != "" && c.SeedAdminPassword != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
