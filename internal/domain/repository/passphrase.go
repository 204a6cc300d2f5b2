package repository

import (
	"context"
	"time"
)

// LinkedRole vincula una passphrase con un rol. Una passphrase puede tener
// cero, uno o muchos roles (una fila por rol).
type LinkedRole struct {
	Passphrase string
	RoleID     string
}

// PassphraseGrant es la fila de auditoría de un rol otorgado por passphrase.
type PassphraseGrant struct {
	ID          string
	Requester   string
	Passphrase  string
	RoleID      string
	AlreadyHeld bool // el usuario ya tenía el rol; no hubo llamada a la plataforma
	GrantedAt   time.Time
}

// LinkedRoleRepository persiste linked_roles.
type LinkedRoleRepository interface {
	// Link crea el vínculo. created es false si el par ya existía.
	Link(ctx context.Context, passphrase, roleID string) (created bool, err error)

	// Unlink elimina el vínculo y retorna las filas borradas.
	Unlink(ctx context.Context, passphrase, roleID string) (int64, error)

	// RolesFor retorna los roles vinculados a la passphrase, en orden de creación.
	RolesFor(ctx context.Context, passphrase string) ([]string, error)

	// Phrases retorna las passphrases distintas en uso.
	Phrases(ctx context.Context) ([]string, error)
}

// GrantRepository persiste passphrase_grants.
type GrantRepository interface {
	Record(ctx context.Context, g PassphraseGrant) error
	ListByRequester(ctx context.Context, requester string) ([]PassphraseGrant, error)
}
