package repository

import "context"

// Tx expone los repositorios que participan de una transacción de canje.
type Tx interface {
	Links() LinkedRoleRepository
	Grants() GrantRepository
}

// Store agrupa los repositorios del Persistent Store.
type Store interface {
	Verifications() VerificationRepository
	Links() LinkedRoleRepository
	Grants() GrantRepository

	// InTx ejecuta fn dentro de una transacción: commit si fn retorna nil,
	// rollback en cualquier otro caso. fn no debe usar el Store directamente.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close()
}
