package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// SMTPConfig son los parámetros del servidor SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool   // solo dev
	Timeout            time.Duration
}

// SMTPSender implementa Mailer usando SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender crea un SMTPSender; TLSMode vacío es "auto".
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

var _ Mailer = (*SMTPSender)(nil)

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.Timeout = s.cfg.Timeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	default:
		// "auto": go-mail negocia STARTTLS si el server lo ofrece
	}
	return d
}

func (s *SMTPSender) build(m Message) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	if m.ToName != "" {
		msg.SetAddressHeader("To", m.To, m.ToName)
	} else {
		msg.SetHeader("To", m.To)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg
}

// Send envía m. go-mail no acepta context: solo se respeta una cancelación previa al dial.
func (s *SMTPSender) Send(ctx context.Context, m Message) (err error) {
	log := logger.From(ctx).With(
		logger.Component("smtp"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
	)
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.ObserveExternal("smtp", start, err) }()

	log = log.With(logger.MaskedEmail(m.To))
	log.Debug("sending email", logger.String("subject", m.Subject), logger.String("tls_mode", s.cfg.TLSMode))

	if err := s.dialer().DialAndSend(s.build(m)); err != nil {
		diag := DiagnoseSMTP(err)
		log.Error("smtp send failed",
			logger.Err(err),
			logger.String("diag", diag.Code),
			logger.Bool("temporary", diag.Temporary),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Info("email sent")
	return nil
}
