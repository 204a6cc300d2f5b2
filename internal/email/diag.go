package email

import (
	"errors"
	"net"
	"strings"
	"time"
)

// SMTPDiag contiene información de diagnóstico de un error SMTP.
type SMTPDiag struct {
	Code       string        // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary  bool          // si conviene reintentar (resend)
	RetryAfter time.Duration // 0 si no se pudo inferir
}

// diagRule: si el mensaje contiene alguno de los needles (y todos los de all), aplica diag.
type diagRule struct {
	diag    SMTPDiag
	any     []string
	all     []string
	anyWith []string // al menos uno, además de all
}

func (r diagRule) match(s string) bool {
	for _, n := range r.all {
		if !strings.Contains(s, n) {
			return false
		}
	}
	if len(r.all) > 0 && len(r.anyWith) > 0 {
		for _, n := range r.anyWith {
			if strings.Contains(s, n) {
				return true
			}
		}
		return false
	}
	if len(r.all) > 0 {
		return true
	}
	for _, n := range r.any {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Orden importa: la primera regla que matchea gana.
var diagRules = []diagRule{
	{diag: SMTPDiag{Code: "timeout", Temporary: true}, any: []string{"timeout"}},
	{diag: SMTPDiag{Code: "dial", Temporary: true}, any: []string{"connection refused", "connectex:", "no such host", "dial tcp"}},
	{diag: SMTPDiag{Code: "tls"}, any: []string{"x509:"}},
	{diag: SMTPDiag{Code: "tls"}, all: []string{"tls"}, anyWith: []string{"handshake", "certificate"}},
	{diag: SMTPDiag{Code: "auth"}, any: []string{"5.7.8", "535", "username and password not accepted", "authentication failed"}},
	{diag: SMTPDiag{Code: "auth"}, all: []string{"auth", "failed"}},
	{diag: SMTPDiag{Code: "rate_limited", Temporary: true, RetryAfter: time.Minute}, any: []string{"4.7.0", "rate limit", "try again later", "temporarily unavailable", "451", "421"}},
	{diag: SMTPDiag{Code: "invalid_recipient"}, any: []string{"5.1.1", "user unknown", "mailbox not found"}},
	{diag: SMTPDiag{Code: "rejected"}, any: []string{"5.7.1", "message rejected", "policy", "dmarc", "spf"}},
}

// DiagnoseSMTP clasifica un error de envío.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	var ne net.Error
	isNet := errors.As(err, &ne)
	if isNet && ne.Timeout() {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}

	s := strings.ToLower(err.Error())
	for _, r := range diagRules {
		if r.match(s) {
			return r.diag
		}
	}
	if isNet {
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown"}
}
