package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"no rows", pgx.ErrNoRows, apperr.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperr.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperr.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.err, "getting mission", "mission")
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestWrapOtherError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, "listing missions", "mission")

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "listing missions: connection reset", err.Error())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
