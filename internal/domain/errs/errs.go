// Package errs define la taxonomía de errores del motor de verificación.
//
// Cada operación falible del motor retorna un *Error con un Kind cerrado; los
// adapters (HTTP, CLI) deciden qué mostrar según Kind y Code, nunca comparando
// strings del mensaje.
package errs

import (
	"errors"
	"fmt"
)

// Kind clasifica un fallo.
type Kind int

const (
	// KindInternal es el fallo no clasificado (bug, store caído en una operación de lectura).
	KindInternal Kind = iota
	// KindInvalidInput indica datos de entrada vacíos o malformados.
	KindInvalidInput
	// KindNotFound: id institucional desconocido, código o passphrase inválidos.
	KindNotFound
	// KindStateConflict: ya pendiente, ya autenticado, ventana ya abierta/cerrada.
	KindStateConflict
	// KindExternalUnavailable: directorio, servicio de identidad, SMTP o plataforma caídos.
	KindExternalUnavailable
	// KindPartialFailure: el rol se otorgó pero el registro no se pudo escribir (o viceversa).
	KindPartialFailure
	// KindThrottled: el requester superó el rate limit.
	KindThrottled
)

var kindNames = [...]string{
	KindInternal:            "internal",
	KindInvalidInput:        "invalid_input",
	KindNotFound:            "not_found",
	KindStateConflict:       "state_conflict",
	KindExternalUnavailable: "external_unavailable",
	KindPartialFailure:      "partial_failure",
	KindThrottled:           "throttled",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error es el error estándar del motor.
type Error struct {
	Kind    Kind
	Code    string // identificador estable: "already_pending", "code_not_found", ...
	Message string // texto para el usuario final
	Err     error  // causa, solo para logs
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite comparar contra los errores base del catálogo por Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// New crea un Error sin causa.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WithCause retorna una COPIA con la causa indicada.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage retorna una COPIA con otro mensaje para el usuario.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// KindOf retorna el Kind de err, o KindInternal si err no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf retorna el Code de err, o "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// MessageOf retorna el mensaje para el usuario; los errores no clasificados
// nunca exponen su texto.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Something went wrong. The moderators have been notified."
}

// Internal envuelve un error no clasificado.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: MessageOf(nil), Err: err}
}
