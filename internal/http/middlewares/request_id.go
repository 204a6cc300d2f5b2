package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ridKey struct{}

// WithRequestID genera o propaga X-Request-ID y lo deja en el contexto.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ridKey{}, rid)))
		})
	}
}

// GetRequestID retorna el request id del contexto.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ridKey{}).(string)
	return v
}
