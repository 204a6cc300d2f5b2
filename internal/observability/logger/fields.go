package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/rolegate/internal/util"
)

// ─── HTTP ───

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ─── Verificación ───

// Requester identifica al usuario de la plataforma que invoca el comando.
func Requester(v string) zap.Field { return zap.String("requester", v) }

// InstitutionalID identifica la identidad institucional (kth_id).
func InstitutionalID(v string) zap.Field { return zap.String("institutional_id", v) }

// Role crea un campo para un rol de la plataforma.
func Role(v string) zap.Field { return zap.String("role", v) }

// Roles crea un campo para una lista de roles.
func Roles(v []string) zap.Field { return zap.Strings("roles", v) }

// Email crea un campo para un e-mail (usar con cuidado en prod).
func Email(v string) zap.Field { return zap.String("email", v) }

// MaskedEmail crea el campo "email" con la parte local ofuscada.
func MaskedEmail(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

// Target identifica el colaborador externo (directory, identity, smtp, platform).
func Target(v string) zap.Field { return zap.String("target", v) }

// ─── Sistema ───

// Component crea un campo para el componente.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (handler, service, store).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// ─── Genéricos ───

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field { return zap.Int(key, v) }

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

// Any crea un campo para cualquier tipo.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
