package middlewares

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// Headers de autenticación entre el gateway y este servicio.
const (
	HeaderGatewayKey = "X-Gateway-Key"
	HeaderAdminKey   = "X-Admin-API-Key"
)

// RequireAPIKey exige header == key. key vacía deja pasar todo (dev).
func RequireAPIKey(header, key string) Middleware {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(header))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "unauthorized",
					"message": "missing or invalid " + header,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
