package repository

import (
	"context"
	"fmt"
	"time"
)

// AuthState es el estado de verificación de un requester.
type AuthState string

const (
	StateAbsent        AuthState = "absent"
	StatePending       AuthState = "pending"
	StateAuthenticated AuthState = "authenticated"
)

// Valid indica si s pertenece a la enumeración.
func (s AuthState) Valid() bool {
	switch s {
	case StateAbsent, StatePending, StateAuthenticated:
		return true
	}
	return false
}

// ParseAuthState convierte un string a AuthState; rechaza valores fuera de la enumeración.
func ParseAuthState(s string) (AuthState, error) {
	st := AuthState(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown auth state %q", ErrInvalidInput, s)
	}
	return st, nil
}

// PendingAuth es un código emitido y todavía no canjeado.
type PendingAuth struct {
	Requester       string // usuario de la plataforma
	InstitutionalID string // kth_id
	Code            string
	CreatedAt       time.Time
}

// Authentication es el registro de auditoría de una verificación completada.
type Authentication struct {
	Requester       string
	InstitutionalID string
	RoleID          string
	GrantedAt       time.Time
}

// VerificationRepository persiste pending_auths y authenticated.
type VerificationRepository interface {
	// State retorna el estado del requester. Una autenticación completada tiene
	// prioridad sobre cualquier fila pendiente.
	State(ctx context.Context, requester string) (AuthState, error)

	// CreatePending inserta la fila solo si el requester está en StateAbsent.
	// El check-then-insert es atómico; retorna ErrConflict si no.
	CreatePending(ctx context.Context, p PendingAuth) error

	// GetPending retorna la fila pendiente del requester o ErrNotFound.
	GetPending(ctx context.Context, requester string) (*PendingAuth, error)

	// FindPending busca por el par (requester, code). ErrNotFound si no existe.
	FindPending(ctx context.Context, requester, code string) (*PendingAuth, error)

	// CompletePending elimina la fila pendiente (a.Requester, code) y registra a
	// en una sola transacción. ErrNotFound si el par ya no existe,
	// ErrConflict si el requester ya estaba autenticado.
	CompletePending(ctx context.Context, code string, a Authentication) error

	// GetAuthentication retorna la autenticación del requester o ErrNotFound.
	GetAuthentication(ctx context.Context, requester string) (*Authentication, error)

	// ListByInstitutionalID retorna las autenticaciones hechas con un kth_id.
	ListByInstitutionalID(ctx context.Context, institutionalID string) ([]Authentication, error)
}
