package email

import (
	"context"
	"sync"

	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

// LogMailer escribe el mensaje en el log en lugar de enviarlo. Config lo
// prohíbe en prod. Guarda los mensajes para inspección.
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
}

var _ Mailer = (*LogMailer)(nil)

func (l *LogMailer) Send(ctx context.Context, m Message) error {
	l.mu.Lock()
	l.sent = append(l.sent, m)
	l.mu.Unlock()

	logger.From(ctx).Info("email (log driver)",
		logger.Component("mail"),
		logger.Email(m.To),
		logger.String("subject", m.Subject),
		logger.String("body", m.Body),
	)
	return nil
}

// Sent retorna una copia de los mensajes enviados.
func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}
