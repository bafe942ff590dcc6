// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Gatekeep HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the storage backend (PostgreSQL + Redis, or in-memory).
//  4. Run database migrations (idempotent).
//  5. Wire the token codec, refresh token store and auth service.
//  6. Seed the administrator account when configured.
//  7. Start the expiry sweeper and rate limiter janitor.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/gatekeep/internal/api"
	"github.com/taibuivan/gatekeep/internal/platform/config"
	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/metrics"
	"github.com/taibuivan/gatekeep/internal/platform/middleware"
	"github.com/taibuivan/gatekeep/internal/platform/migration"
	pgstore "github.com/taibuivan/gatekeep/internal/platform/postgres"
	redisstore "github.com/taibuivan/gatekeep/internal/platform/redis"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/users/auth"
)

// storage bundles the repositories chosen by STORAGE_DRIVER.
type storage struct {
	users         auth.UserRepository
	refreshTokens auth.RefreshTokenRepository
	resetTokens   auth.ResetTokenRepository
	health        api.HealthDependencies
	close         func()
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(log)

	log.Info("[Gatekeep] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String(constants.FieldApp, constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Bool("refresh_rotation", cfg.RefreshTokenRotation),
		slog.Bool("refresh_cookie", cfg.RefreshTokenCookie),
		slog.Bool("embed_permissions", cfg.EmbedPermissions()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Storage ────────────────────────────────────────────────────────
	store, err := openStorage(startupCtx, cfg, log)
	must(log, err, "open storage")
	defer store.close()

	// ── 4. Security Primitives ────────────────────────────────────────────
	codec, err := sec.NewTokenCodec([]byte(cfg.JWTAccessSecret), cfg.JWTIssuer)
	must(log, err, "initialize token codec")

	refreshTokens, err := auth.NewRefreshTokenStore(store.refreshTokens, auth.RefreshTokenOptions{
		TTL:        cfg.RefreshTokenTTL(),
		TokenBytes: cfg.RefreshTokenBytes,
	})
	must(log, err, "initialize refresh token store")

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	m := metrics.New()

	authService, err := auth.NewService(auth.Dependencies{
		Users:         store.users,
		RefreshTokens: refreshTokens,
		ResetTokens:   store.resetTokens,
		Issuer:        auth.NewAccessTokenIssuer(codec, cfg.AccessTokenTTL, cfg.EmbedPermissions()),
		Hasher:        sec.NewBcryptHasher(cfg.BcryptCost),
		Mailer:        auth.NewLogMailer(log),
		Observer:      m,
		Activity:      auth.NewSlogActivityLogger(log),
		Logger:        log,
	}, auth.Policy{
		LockoutThreshold:    cfg.LockoutThreshold,
		LockoutCooldown:     cfg.LockoutCooldown,
		RotateRefreshTokens: cfg.RefreshTokenRotation,
		ResetTokenTTL:       cfg.ResetTokenTTL,
	})
	must(log, err, "initialize auth service")

	// ── 6. Seed Administrator ─────────────────────────────────────────────
	if cfg.HasSeedAdmin() {
		created, err := authService.EnsureAdmin(startupCtx, auth.RegisterInput{
			Username: cfg.SeedAdminUsername,
			Email:    cfg.SeedAdminEmail,
			Password: cfg.SeedAdminPassword,
		})
		must(log, err, "seed administrator")
		log.Info("admin_seed_checked", slog.String("username", cfg.SeedAdminUsername), slog.Bool("created", created))
	}

	// ── 7. Background Jobs ────────────────────────────────────────────────
	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	sweeper, err := auth.NewSweeper(refreshTokens, cfg.SweepSchedule, m, log)
	must(log, err, "initialize expiry sweeper")
	sweeper.Start()

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	go authLimiter.Run(runCtx)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(store.health, log)

	server := api.NewServer(api.Options{
		Port:        cfg.ServerPort,
		AuthLimiter: authLimiter,
		Instrument:  m.Middleware,
	}, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth: auth.NewHandler(authService, codec, auth.CookieOptions{
			Enabled: cfg.RefreshTokenCookie,
			Secure:  !cfg.IsDevelopment(),
		}),
		Metrics: m.Handler(),
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	exitCode := 0
	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		exitCode = 1
	}

	stopBackground()

	sweepCtx, sweepCancel := context.WithTimeout(context.Background(), constants.SweepTimeout)
	if err := sweeper.Stop(sweepCtx); err != nil {
		log.Error("sweeper stop error", slog.Any("error", err))
	}
	sweepCancel()

	if exitCode != 0 {
		store.close()
		os.Exit(exitCode)
	}

	log.Info("server stopped cleanly")
}

// openStorage connects the backend selected by STORAGE_DRIVER.
//
// The postgres driver keeps users and refresh tokens in PostgreSQL and reset
// tokens in Redis. The memory driver keeps everything in process and loses it
// on restart.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("memory_storage_enabled", slog.String("hint", "state is lost on restart"))
		return &storage{
			users:         auth.NewMemoryUserRepository(),
			refreshTokens: auth.NewMemoryRefreshTokenRepository(),
			resetTokens:   auth.NewMemoryResetTokenRepository(time.Now),
			close:         func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, log)
	if err != nil {
		return nil, err
	}

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		pool.Close()
		return nil, err
	}

	rdb, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		users:         auth.NewUserRepository(pool),
		refreshTokens: auth.NewRefreshTokenRepository(pool),
		resetTokens:   auth.NewResetTokenRepository(rdb),
		health: api.HealthDependencies{
			CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
			CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		},
		close: func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
			log.Info("closing postgres pool")
			pool.Close()
		},
	}, nil
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
