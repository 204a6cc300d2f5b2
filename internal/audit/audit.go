// Package audit escribe eventos de auditoría estructurados (grants, ventana,
// links) por el logger "audit".
package audit

import (
	"context"

	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"go.uber.org/zap"
)

// Eventos conocidos.
const (
	EventVerificationBegun     = "verification.begun"
	EventVerificationCompleted = "verification.completed"
	EventPassphraseRedeemed    = "passphrase.redeemed"
	EventWindowOpened          = "window.opened"
	EventWindowClosed          = "window.closed"
	EventRoleLinked            = "link.created"
	EventRoleUnlinked          = "link.removed"
)

// Log escribe event con fields. Hereda request_id y demás campos del logger del ctx.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit")
	l.Info(event, append([]zap.Field{zap.String("event", event)}, fields...)...)
}
