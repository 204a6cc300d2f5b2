package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
)

type verificationRepo struct{ db dbtx }

const stateQuery = `
	SELECT
		EXISTS (SELECT 1 FROM authenticated WHERE requester = $1),
		EXISTS (SELECT 1 FROM pending_auths WHERE requester = $1)
`

func stateIn(ctx context.Context, db dbtx, requester string) (repository.AuthState, error) {
	var authenticated, pending bool
	if err := db.QueryRow(ctx, stateQuery, requester).Scan(&authenticated, &pending); err != nil {
		return "", err
	}
	switch {
	case authenticated:
		return repository.StateAuthenticated, nil
	case pending:
		return repository.StatePending, nil
	default:
		return repository.StateAbsent, nil
	}
}

func (r *verificationRepo) State(ctx context.Context, requester string) (repository.AuthState, error) {
	return stateIn(ctx, r.db, requester)
}

func (r *verificationRepo) CreatePending(ctx context.Context, p repository.PendingAuth) error {
	if p.Requester == "" || p.InstitutionalID == "" || p.Code == "" {
		return repository.ErrInvalidInput
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockRequester(ctx, tx, p.Requester); err != nil {
			return err
		}
		st, err := stateIn(ctx, tx, p.Requester)
		if err != nil {
			return err
		}
		if st != repository.StateAbsent {
			return repository.ErrConflict
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO pending_auths (requester, institutional_id, verification_code, created_at)
			VALUES ($1, $2, $3, $4)`,
			p.Requester, p.InstitutionalID, p.Code, p.CreatedAt)
		return mapErr(err)
	})
}

func (r *verificationRepo) GetPending(ctx context.Context, requester string) (*repository.PendingAuth, error) {
	var p repository.PendingAuth
	err := r.db.QueryRow(ctx, `
		SELECT requester, institutional_id, verification_code, created_at
		FROM pending_auths WHERE requester = $1`, requester).
		Scan(&p.Requester, &p.InstitutionalID, &p.Code, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *verificationRepo) FindPending(ctx context.Context, requester, code string) (*repository.PendingAuth, error) {
	var p repository.PendingAuth
	err := r.db.QueryRow(ctx, `
		SELECT requester, institutional_id, verification_code, created_at
		FROM pending_auths WHERE requester = $1 AND verification_code = $2`, requester, code).
		Scan(&p.Requester, &p.InstitutionalID, &p.Code, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *verificationRepo) CompletePending(ctx context.Context, code string, a repository.Authentication) error {
	if a.GrantedAt.IsZero() {
		a.GrantedAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockRequester(ctx, tx, a.Requester); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM authenticated WHERE requester = $1)`, a.Requester).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return repository.ErrConflict
		}
		tag, err := tx.Exec(ctx, `DELETE FROM pending_auths WHERE requester = $1 AND verification_code = $2`, a.Requester, code)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO authenticated (requester, institutional_id, role_id, granted_at)
			VALUES ($1, $2, $3, $4)`,
			a.Requester, a.InstitutionalID, a.RoleID, a.GrantedAt)
		return mapErr(err)
	})
}

func (r *verificationRepo) GetAuthentication(ctx context.Context, requester string) (*repository.Authentication, error) {
	var a repository.Authentication
	err := r.db.QueryRow(ctx, `
		SELECT requester, institutional_id, role_id, granted_at
		FROM authenticated WHERE requester = $1`, requester).
		Scan(&a.Requester, &a.InstitutionalID, &a.RoleID, &a.GrantedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *verificationRepo) ListByInstitutionalID(ctx context.Context, institutionalID string) ([]repository.Authentication, error) {
	rows, err := r.db.Query(ctx, `
		SELECT requester, institutional_id, role_id, granted_at
		FROM authenticated WHERE institutional_id = $1
		ORDER BY granted_at`, institutionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Authentication
	for rows.Next() {
		var a repository.Authentication
		if err := rows.Scan(&a.Requester, &a.InstitutionalID, &a.RoleID, &a.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
