package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/platform"
	"github.com/dropDatabas3/rolegate/internal/verification"
)

// VerificationService es el motor de verificación por código.
type VerificationService interface {
	Begin(ctx context.Context, requester, institutionalID string) (verification.BeginResult, error)
	Complete(ctx context.Context, requester, code string) (platform.Role, error)
	Resend(ctx context.Context, requester string) (verification.BeginResult, error)
	Status(ctx context.Context, requester string) (verification.Status, error)
	Whois(ctx context.Context, institutionalID string) ([]repository.Authentication, error)
}

// Verification agrupa los endpoints /v1/verification.
type Verification struct {
	svc VerificationService
}

func NewVerification(svc VerificationService) *Verification { return &Verification{svc: svc} }

type beginReq struct {
	Requester       string `json:"requester"`
	InstitutionalID string `json:"institutional_id"`
}

type completeReq struct {
	Requester string `json:"requester"`
	Code      string `json:"code"`
}

type beginResp struct {
	okBody
	InstitutionalID string `json:"institutional_id"`
	DisplayName     string `json:"display_name,omitempty"`
}

// Begin: POST /v1/verification/begin
func (h *Verification) Begin(w http.ResponseWriter, r *http.Request) {
	var in beginReq
	if !readJSON(w, r, &in) {
		return
	}
	res, err := h.svc.Begin(r.Context(), in.Requester, in.InstitutionalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beginResp{
		okBody:          ok("Authentication e-mail sent, please check your inbox."),
		InstitutionalID: res.Identity.InstitutionalID,
		DisplayName:     res.Identity.DisplayName,
	})
}

// Complete: POST /v1/verification/complete
func (h *Verification) Complete(w http.ResponseWriter, r *http.Request) {
	var in completeReq
	if !readJSON(w, r, &in) {
		return
	}
	role, err := h.svc.Complete(r.Context(), in.Requester, in.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Role platform.Role `json:"role"`
	}{ok(fmt.Sprintf("Authentication successful, you have been given the role %s.", role.Name)), role})
}

// Resend: POST /v1/verification/resend
func (h *Verification) Resend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Requester string `json:"requester"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	res, err := h.svc.Resend(r.Context(), in.Requester)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beginResp{
		okBody:          ok("Authentication e-mail sent again, please check your inbox."),
		InstitutionalID: res.Identity.InstitutionalID,
		DisplayName:     res.Identity.DisplayName,
	})
}

// Status: GET /v1/verification/{requester}
func (h *Verification) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "requester"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		verification.Status
	}{ok(string(st.State)), st})
}

type authView struct {
	Requester       string `json:"requester"`
	InstitutionalID string `json:"institutional_id"`
	RoleID          string `json:"role_id"`
	GrantedAt       string `json:"granted_at"`
}

// Whois: GET /v1/admin/whois/{institutional_id}
func (h *Verification) Whois(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "institutional_id")
	list, err := h.svc.Whois(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]authView, len(list))
	for i, a := range list {
		views[i] = authView{a.Requester, a.InstitutionalID, a.RoleID, a.GrantedAt.UTC().Format("2006-01-02T15:04:05Z")}
	}
	msg := fmt.Sprintf("No one has authenticated with KTH ID '%s'.", id)
	if len(list) > 0 {
		msg = fmt.Sprintf("%d authentication(s) with KTH ID '%s'.", len(list), id)
	}
	writeJSON(w, http.StatusOK, struct {
		okBody
		Authentications []authView `json:"authentications"`
	}{ok(msg), views})
}
