// Package util reúne helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail ofusca la parte local de un e-mail para logs: conserva la
// primera letra y el dominio completo ("a…@kth.se"). Sin '@' devuelve "***".
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return "***"
	}
	local, domain := s[:at], s[at+1:]
	return local[:1] + "…@" + domain
}
