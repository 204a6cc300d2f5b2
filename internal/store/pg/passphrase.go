package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
)

type linkRepo struct{ db dbtx }

func (r *linkRepo) Link(ctx context.Context, passphrase, roleID string) (bool, error) {
	if passphrase == "" || roleID == "" {
		return false, repository.ErrInvalidInput
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO linked_roles (passphrase, role_id) VALUES ($1, $2)
		ON CONFLICT (passphrase, role_id) DO NOTHING`, passphrase, roleID)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *linkRepo) Unlink(ctx context.Context, passphrase, roleID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM linked_roles WHERE passphrase = $1 AND role_id = $2`, passphrase, roleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *linkRepo) RolesFor(ctx context.Context, passphrase string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT role_id FROM linked_roles WHERE passphrase = $1 ORDER BY created_at, role_id`, passphrase)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *linkRepo) Phrases(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT passphrase FROM linked_roles ORDER BY passphrase`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type grantRepo struct{ db dbtx }

func (r *grantRepo) Record(ctx context.Context, g repository.PassphraseGrant) error {
	if g.ID == "" || g.Requester == "" || g.RoleID == "" {
		return repository.ErrInvalidInput
	}
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO passphrase_grants (id, requester, passphrase, role_id, already_held, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.Requester, g.Passphrase, g.RoleID, g.AlreadyHeld, g.GrantedAt)
	return mapErr(err)
}

func (r *grantRepo) ListByRequester(ctx context.Context, requester string) ([]repository.PassphraseGrant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, requester, passphrase, role_id, already_held, granted_at
		FROM passphrase_grants WHERE requester = $1 ORDER BY granted_at`, requester)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.PassphraseGrant
	for rows.Next() {
		var g repository.PassphraseGrant
		if err := rows.Scan(&g.ID, &g.Requester, &g.Passphrase, &g.RoleID, &g.AlreadyHeld, &g.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
