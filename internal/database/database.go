// Package database holds the PostgreSQL connection and error helpers shared
// by the pgx-backed stores.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Connect opens a pgx pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Wrap classifies a query error. Missing rows become apperr.ErrNotFound and
// unique violations become apperr.ErrConflict; anything else is wrapped with
// op as context.
func Wrap(err error, op, entity string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound("%s not found", entity)
	case IsUniqueViolation(err):
		return apperr.Conflict("%s already exists", entity)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
