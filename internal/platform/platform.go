// Package platform define las capacidades de la plataforma de chat que el
// motor consume. El motor depende solo de estas interfaces; internal/platform/discord
// las implementa contra la API REST de Discord.
package platform

import (
	"context"
	"errors"
)

// ErrRoleNotFound: el rol no existe en el servidor.
var ErrRoleNotFound = errors.New("role not found")

// Role es un rol de la plataforma.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleGranter otorga y revoca roles a un usuario.
type RoleGranter interface {
	GrantRole(ctx context.Context, user, roleID string) error
	RevokeRole(ctx context.Context, user, roleID string) error
}

// RoleDirectory resuelve roles del servidor.
type RoleDirectory interface {
	// FindByName retorna ErrRoleNotFound si no hay un rol con ese nombre.
	FindByName(ctx context.Context, name string) (Role, error)
	// FindByID retorna ErrRoleNotFound si el id no existe.
	FindByID(ctx context.Context, id string) (Role, error)
}

// MemberRoles lista los roles actuales de un usuario.
type MemberRoles interface {
	RolesOf(ctx context.Context, user string) ([]string, error)
}

// ModLog publica mensajes en el canal de moderación.
type ModLog interface {
	Post(ctx context.Context, msg string) error
}

// Platform agrupa todas las capacidades.
type Platform interface {
	RoleGranter
	RoleDirectory
	MemberRoles
	ModLog
}
