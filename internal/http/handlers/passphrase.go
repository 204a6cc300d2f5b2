package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/rolegate/internal/passphrase"
	"github.com/dropDatabas3/rolegate/internal/platform"
)

// PassphraseService es el registro por passphrase.
type PassphraseService interface {
	Redeem(ctx context.Context, requester, phrase string) (passphrase.Redemption, error)
	OpenWindow(ctx context.Context, by, phrase string) (string, error)
	CloseWindow(ctx context.Context, by string) (string, bool)
	WindowStatus() (string, bool)
	Link(ctx context.Context, phrase, roleID string) (platform.Role, bool, error)
	Unlink(ctx context.Context, phrase, roleID string) (int64, error)
	Phrases(ctx context.Context) ([]string, error)
	Roles(ctx context.Context, phrase string) ([]platform.Role, error)
}

// Passphrase agrupa /v1/passphrase y los endpoints de moderación de ventana y links.
type Passphrase struct {
	svc PassphraseService
}

func NewPassphrase(svc PassphraseService) *Passphrase { return &Passphrase{svc: svc} }

// Redeem: POST /v1/passphrase/redeem
func (h *Passphrase) Redeem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Requester string `json:"requester"`
		Phrase    string `json:"phrase"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	red, err := h.svc.Redeem(r.Context(), in.Requester, in.Phrase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if red.Granted == nil {
		red.Granted = []platform.Role{}
	}
	if red.AlreadyHeld == nil {
		red.AlreadyHeld = []platform.Role{}
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		passphrase.Redemption
	}{ok("Authentication successful. If you were missing any roles linked to the passphrase, these have now been given to you."), red})
}

// ─── Ventana ───

type windowView struct {
	okBody
	Open   bool   `json:"open"`
	Phrase string `json:"phrase,omitempty"`
}

// WindowStatus: GET /v1/admin/window
func (h *Passphrase) WindowStatus(w http.ResponseWriter, r *http.Request) {
	phrase, open := h.svc.WindowStatus()
	msg := "Registration is currently closed."
	if open {
		msg = fmt.Sprintf("Registration is open with passphrase '%s'.", phrase)
	}
	writeJSON(w, http.StatusOK, windowView{ok(msg), open, phrase})
}

// OpenWindow: POST /v1/admin/window {phrase, by}
func (h *Passphrase) OpenWindow(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phrase string `json:"phrase"`
		By     string `json:"by"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	phrase, err := h.svc.OpenWindow(r.Context(), in.By, in.Phrase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, windowView{ok(fmt.Sprintf("Registration opened with passphrase '%s'.", phrase)), true, phrase})
}

// CloseWindow: DELETE /v1/admin/window?by=
func (h *Passphrase) CloseWindow(w http.ResponseWriter, r *http.Request) {
	prev, wasOpen := h.svc.CloseWindow(r.Context(), r.URL.Query().Get("by"))
	msg := "Registration was not open."
	if wasOpen {
		msg = fmt.Sprintf("Registration closed (passphrase was '%s').", prev)
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		WasOpen  bool   `json:"was_open"`
		Previous string `json:"previous,omitempty"`
	}{ok(msg), wasOpen, prev})
}

// ─── Links ───

type linkReq struct {
	Phrase string `json:"phrase"`
	RoleID string `json:"role_id"`
}

// ListPhrases: GET /v1/admin/links
func (h *Passphrase) ListPhrases(w http.ResponseWriter, r *http.Request) {
	phrases, err := h.svc.Phrases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "No phrases currently in use."
	if len(phrases) > 0 {
		msg = strings.Join(phrases, ", ")
	}
	if phrases == nil {
		phrases = []string{}
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Phrases []string `json:"phrases"`
	}{ok(msg), phrases})
}

// ListRoles: GET /v1/admin/links/{phrase}
func (h *Passphrase) ListRoles(w http.ResponseWriter, r *http.Request) {
	phrase := chi.URLParam(r, "phrase")
	roles, err := h.svc.Roles(r.Context(), phrase)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := fmt.Sprintf("No roles currently associated with phrase '%s'.", phrase)
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = role.Name
		}
		msg = strings.Join(names, ", ")
	}
	if roles == nil {
		roles = []platform.Role{}
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Roles []platform.Role `json:"roles"`
	}{ok(msg), roles})
}

// Link: POST /v1/admin/links {phrase, role_id}
func (h *Passphrase) Link(w http.ResponseWriter, r *http.Request) {
	var in linkReq
	if !readJSON(w, r, &in) {
		return
	}
	role, created, err := h.svc.Link(r.Context(), in.Phrase, in.RoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := fmt.Sprintf("Associated role %s with passphrase %s.", role.Name, in.Phrase)
	if !created {
		msg = fmt.Sprintf("Role %s was already associated with passphrase %s.", role.Name, in.Phrase)
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Created bool          `json:"created"`
		Role    platform.Role `json:"role"`
	}{ok(msg), created, role})
}

// Unlink: DELETE /v1/admin/links {phrase, role_id}
func (h *Passphrase) Unlink(w http.ResponseWriter, r *http.Request) {
	var in linkReq
	if !readJSON(w, r, &in) {
		return
	}
	n, err := h.svc.Unlink(r.Context(), in.Phrase, in.RoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := fmt.Sprintf("Role '%s' no longer associated with passphrase '%s'.", in.RoleID, in.Phrase)
	if n == 0 {
		msg = fmt.Sprintf("Role '%s' not associated with phrase '%s' (deleted %d records).", in.RoleID, in.Phrase, n)
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Deleted int64 `json:"deleted"`
	}{ok(msg), n})
}
