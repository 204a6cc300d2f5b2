// Package metrics contiene las métricas Prometheus del motor. Viven en un
// paquete aparte para que directory, identity, email y los servicios puedan
// instrumentarse sin importar el paquete HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	VerificationsBegun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_begun_total",
		Help: "Intentos de begin por resultado (ok, conflict, not_found, unavailable, throttled, ...)",
	}, []string{"outcome"})

	VerificationsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_completed_total",
		Help: "Verificaciones completadas por rol otorgado (staff | member)",
	}, []string{"role"})

	PassphraseRedemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passphrase_redemptions_total",
		Help: "Canjes de passphrase por resultado",
	}, []string{"outcome"})

	ExternalCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "external_call_duration_seconds",
		Help:    "Latencia de llamadas a colaboradores externos",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"target", "result"})
)

// Register registra las métricas en reg (o en el default si es nil).
// Registrar dos veces no es un error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		VerificationsBegun,
		VerificationsCompleted,
		PassphraseRedemptions,
		ExternalCallDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveExternal registra la duración de una llamada a target desde start.
func ObserveExternal(target string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExternalCallDuration.WithLabelValues(target, result).Observe(time.Since(start).Seconds())
}
