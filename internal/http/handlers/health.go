package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger es el chequeo de readiness del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready: GET /readyz
func Ready(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, okBody{Code: "not_ready", Message: "store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, ok("ready"))
	}
}
