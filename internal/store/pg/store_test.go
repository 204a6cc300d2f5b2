package pg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
)

func TestMapErr(t *testing.T) {
	require.NoError(t, mapErr(nil))
	require.ErrorIs(t, mapErr(pgx.ErrNoRows), repository.ErrNotFound)
	require.ErrorIs(t, mapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "pending_auths_pkey"}
	err := mapErr(dup)
	require.ErrorIs(t, err, repository.ErrConflict)
	require.Contains(t, err.Error(), "pending_auths_pkey")

	other := errors.New("connection refused")
	require.Equal(t, other, mapErr(other))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "", Options{})
	require.ErrorIs(t, err, repository.ErrNoDatabase)
}
