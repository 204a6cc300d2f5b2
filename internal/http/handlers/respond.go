// Package handlers expone el motor por HTTP para el gateway de la plataforma
// de chat. Cada respuesta es JSON con "code" y "message"; message es el texto
// que el gateway muestra al usuario.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/rolegate/internal/domain/errs"
	"github.com/dropDatabas3/rolegate/internal/http/middlewares"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor mapea un errs.Kind a status HTTP.
func StatusFor(k errs.Kind) int {
	switch k {
	case errs.KindInvalidInput:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindStateConflict:
		return http.StatusConflict
	case errs.KindThrottled:
		return http.StatusTooManyRequests
	case errs.KindExternalUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON: respuesta JSON estándar
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError escribe err según su Kind. La causa solo va al log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := StatusFor(kind)
	log := logger.From(r.Context())
	switch {
	case status >= 500 && kind != errs.KindExternalUnavailable:
		log.Error("request error", logger.String("code", errs.CodeOf(err)), logger.Err(err))
	case status >= 500:
		log.Warn("collaborator unavailable", logger.String("code", errs.CodeOf(err)), logger.Err(err))
	default:
		log.Debug("request rejected", logger.String("code", errs.CodeOf(err)), logger.Err(err))
	}
	writeJSON(w, status, apiError{
		Code:      errs.CodeOf(err),
		Message:   errs.MessageOf(err),
		Kind:      kind.String(),
		RequestID: middlewares.GetRequestID(r.Context()),
	})
}

var errBadJSON = errs.New(errs.KindInvalidInput, "invalid_json", "Invalid request body.")

// readJSON decodifica el body (máx 64KB). Tolera campos desconocidos.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		writeError(w, r, errBadJSON.WithMessage("Content-Type must be application/json."))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeError(w, r, errBadJSON.WithCause(err))
		return false
	}
	return true
}

// okBody es la respuesta exitosa base.
type okBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(msg string) okBody { return okBody{Code: "ok", Message: msg} }
