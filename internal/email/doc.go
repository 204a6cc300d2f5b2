// Package email entrega el código de verificación.
//
//	verification.Service ──► Mailer.Send(ctx, Message)
//	                              │
//	               ┌──────────────┴──────────────┐
//	               ▼                             ▼
//	         SMTPSender (go-mail)         LogMailer (solo dev)
//
// DiagnoseSMTP clasifica los errores de envío para el log y el modlog.
package email
