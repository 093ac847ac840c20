package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq" // postgres driver
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = time.Minute

	firstRetryDelay = 200 * time.Millisecond
	maxRetryDelay   = 2 * time.Second
)

// Connect opens a pool for dsn and waits up to timeout for the server to
// answer a ping, retrying while it is still starting.
func Connect(dsn string, timeout time.Duration, logger *slog.Logger) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := waitForPing(ctx, pool, timeout, logger); err != nil {
		if closeErr := pool.Close(); closeErr != nil {
			logger.Error("failed to close database handle after ping error", slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("database not reachable within %v: %w", timeout, err)
	}
	return pool, nil
}

func waitForPing(ctx context.Context, pool *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = firstRetryDelay
	policy.MaxInterval = maxRetryDelay
	policy.MaxElapsedTime = timeout

	var (
		attempt int
		lastErr error
	)
	ping := func() error {
		attempt++
		lastErr = pool.PingContext(ctx)
		return lastErr
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("database ping failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", next),
			slog.Any("error", err),
		)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), notify); err != nil {
		// Prefer the last ping error over the context error.
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
