// Package pg implementa repository.Store sobre PostgreSQL con pgx/v5.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

// dbtx es el subconjunto común de *pgxpool.Pool y pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options ajusta el pool.
type Options struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Store implementa repository.Store.
type Store struct{ pool *pgxpool.Pool }

var _ repository.Store = (*Store)(nil)

// New abre el pool. El ping inicial no es bloqueante: si la base todavía no
// responde se loguea y el proceso arranca igual (readyz lo reporta).
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, repository.ErrNoDatabase
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
		pcfg.MaxConnIdleTime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Verifications() repository.VerificationRepository {
	return &verificationRepo{db: s.pool}
}

func (s *Store) Links() repository.LinkedRoleRepository { return &linkRepo{db: s.pool} }

func (s *Store) Grants() repository.GrantRepository { return &grantRepo{db: s.pool} }

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
		return fn(&txScope{db: t})
	})
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

type txScope struct{ db dbtx }

func (t *txScope) Links() repository.LinkedRoleRepository { return &linkRepo{db: t.db} }
func (t *txScope) Grants() repository.GrantRepository     { return &grantRepo{db: t.db} }

// ─── Helpers ───

const uniqueViolation = "23505"

// mapErr traduce errores nativos de pgx a errores de dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// lockRequester serializa las transiciones de estado de un requester dentro de
// la transacción actual. El lock se libera con el commit/rollback.
func lockRequester(ctx context.Context, tx pgx.Tx, requester string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "rolegate:"+requester)
	return err
}
