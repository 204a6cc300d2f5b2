// Package http es la API de comandos que consume el gateway de la plataforma.
//
//	/v1/verification/...   X-Gateway-Key   (usuarios)
//	/v1/passphrase/redeem  X-Gateway-Key
//	/v1/admin/...          X-Admin-API-Key (el gateway ya aplicó el check de moderador)
//	/readyz, /metrics
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/rolegate/internal/http/handlers"
	mw "github.com/dropDatabas3/rolegate/internal/http/middlewares"
)

// Deps son las dependencias del router.
type Deps struct {
	Verification handlers.VerificationService
	Passphrase   handlers.PassphraseService
	Store        handlers.Pinger
	GatewayKey   string
	AdminAPIKey  string
	Metrics      http.Handler // nil = sin /metrics
}

// NewRouter arma el router chi.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRequestID(), mw.WithLogging(), mw.WithRecover(), mw.WithMetrics())

	r.Get("/readyz", handlers.Ready(d.Store))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	v := handlers.NewVerification(d.Verification)
	p := handlers.NewPassphrase(d.Passphrase)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAPIKey(mw.HeaderGatewayKey, d.GatewayKey))
			r.Post("/verification/begin", v.Begin)
			r.Post("/verification/complete", v.Complete)
			r.Post("/verification/resend", v.Resend)
			r.Get("/verification/{requester}", v.Status)
			r.Post("/passphrase/redeem", p.Redeem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireAPIKey(mw.HeaderAdminKey, d.AdminAPIKey))
			r.Get("/window", p.WindowStatus)
			r.Post("/window", p.OpenWindow)
			r.Delete("/window", p.CloseWindow)
			r.Get("/links", p.ListPhrases)
			r.Post("/links", p.Link)
			r.Delete("/links", p.Unlink)
			r.Get("/links/{phrase}", p.ListRoles)
			r.Get("/whois/{institutional_id}", v.Whois)
		})
	})
	return r
}
