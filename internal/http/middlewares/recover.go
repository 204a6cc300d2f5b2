package middlewares

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

// WithRecover convierte un panic en un 500 JSON.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic", logger.Any("recover", rec))
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":       "internal",
						"message":    "Something went wrong. The moderators have been notified.",
						"request_id": GetRequestID(r.Context()),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
