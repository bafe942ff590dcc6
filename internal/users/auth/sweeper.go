// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/taibuivan/gatekeep/internal/platform/constants"
)

// Sweeper periodically deletes expired refresh tokens on a cron schedule,
// independently of request handling.
type Sweeper struct {
	store    *RefreshTokenStore
	observer Observer
	logger   *slog.Logger
	cron     *cron.Cron
}

/*
NewSweeper schedules [RefreshTokenStore.SweepExpired].

Parameters:
  - store: *RefreshTokenStore
  - schedule: string (Standard cron expression or descriptor such as "@daily")
  - observer: Observer (optional)
  - logger: *slog.Logger

Returns:
  - *Sweeper: A scheduler that has not been started yet
  - error: Invalid schedule
*/
func NewSweeper(store *RefreshTokenStore, schedule string, observer Observer, logger *slog.Logger) (*Sweeper, error) {
	if observer == nil {
		observer = nopObserver{}
	}

	cronLogger := cronSlogLogger{logger: logger}
	sweeper := &Sweeper{
		store:    store,
		observer: observer,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}

	if _, err := sweeper.cron.AddFunc(schedule, func() {
		_, _ = sweeper.RunOnce(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("auth: invalid sweep schedule %q: %w", schedule, err)
	}

	return sweeper, nil
}

// Start begins running the schedule in its own goroutine.
func (sweeper *Sweeper) Start() {
	sweeper.cron.Start()
	sweeper.logger.Info("refresh_token_sweeper_started")
}

// Stop halts the schedule and waits for a running sweep, or for ctx to end.
func (sweeper *Sweeper) Stop(ctx context.Context) error {
	done := sweeper.cron.Stop()
	select {
	case <-done.Done():
		sweeper.logger.Info("refresh_token_sweeper_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

/*
RunOnce performs a single sweep immediately.

Returns:
  - int64: Number of deleted tokens
  - error: Storage failures
*/
func (sweeper *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, constants.SweepTimeout)
	defer cancel()

	deleted, err := sweeper.store.SweepExpired(sweepCtx)
	if err != nil {
		sweeper.logger.Error("refresh_token_sweep_failed", slog.Any("error", err))
		return 0, err
	}

	sweeper.observer.RefreshTokensSweptCount(deleted)
	sweeper.logger.Info("refresh_token_swept", slog.Int64("deleted", deleted))
	return deleted, nil
}

// cronSlogLogger adapts slog to the cron.Logger interface.
type cronSlogLogger struct {
	logger *slog.Logger
}

func (adapter cronSlogLogger) Info(msg string, keysAndValues ...interface{}) {
	adapter.logger.Debug("cron_"+msg, keysAndValues...)
}

func (adapter cronSlogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	adapter.logger.Error("cron_"+msg, append(keysAndValues, "error", err)...)
}
