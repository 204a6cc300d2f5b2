package repository

import "errors"

var (
	// ErrNotFound indica que el registro solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica que el estado actual impide la escritura
	// (requester ya pendiente/autenticado, fila duplicada).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoDatabase indica que no hay base de datos configurada.
	ErrNoDatabase = errors.New("no database configured")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
