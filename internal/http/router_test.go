package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/rolegate/internal/directory"
	"github.com/dropDatabas3/rolegate/internal/email"
	"github.com/dropDatabas3/rolegate/internal/identity"
	"github.com/dropDatabas3/rolegate/internal/passphrase"
	"github.com/dropDatabas3/rolegate/internal/platform"
	"github.com/dropDatabas3/rolegate/internal/platform/platformtest"
	"github.com/dropDatabas3/rolegate/internal/store/memory"
	"github.com/dropDatabas3/rolegate/internal/verification"
)

type staticDirectory struct{}

func (staticDirectory) ResolveStaffIDs(context.Context) (directory.Snapshot, error) {
	return directory.NewSnapshot("ab1"), nil
}

type staticIdentity struct{}

func (staticIdentity) Lookup(_ context.Context, id string) (identity.Identity, error) {
	if id == "missing" {
		return identity.Identity{}, identity.ErrNotFound
	}
	return identity.Identity{InstitutionalID: id, Email: id + "@kth.se", DisplayName: id}, nil
}

type api struct {
	t      *testing.T
	srv    *httptest.Server
	mailer *email.LogMailer
	plat   *platformtest.Fake
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st := memory.New()
	plat := platformtest.New(platform.Role{ID: "100", Name: "Teacher"}, platform.Role{ID: "200", Name: "Student"}, platform.Role{ID: "300", Name: "Freshers"})
	mailer := &email.LogMailer{}

	svc, err := verification.New(
		verification.Config{StaffRole: "Teacher", MemberRole: "Student", InDirectory: verification.ClassStaff},
		verification.Deps{Store: st, Directory: staticDirectory{}, Identity: staticIdentity{}, Mailer: mailer, Platform: plat},
	)
	require.NoError(t, err)
	reg := passphrase.NewRegistrar(passphrase.Config{RequireWindow: true}, nil, st, plat)

	srv := httptest.NewServer(NewRouter(Deps{
		Verification: svc,
		Passphrase:   reg,
		Store:        st,
		GatewayKey:   "gw",
		AdminAPIKey:  "adm",
	}))
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, mailer: mailer, plat: plat}
}

func (a *api) do(method, path, key string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	switch key {
	case "gw":
		req.Header.Set("X-Gateway-Key", key)
	case "adm":
		req.Header.Set("X-Admin-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func lastCode(t *testing.T, m *email.LogMailer) string {
	t.Helper()
	sent := m.Sent()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].Body
	// "Hello x, this is your code: XXXXXXXX\n"
	return body[len(body)-1-verification.CodeLength : len(body)-1]
}

func TestVerificationFlow(t *testing.T) {
	a := newAPI(t)

	status, body := a.do(http.MethodPost, "/v1/verification/begin", "gw", map[string]string{"requester": "u1", "institutional_id": "ab1"})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, "Authentication e-mail sent, please check your inbox.", body["message"])

	status, body = a.do(http.MethodPost, "/v1/verification/begin", "gw", map[string]string{"requester": "u1", "institutional_id": "ab1"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_pending", body["code"])

	status, body = a.do(http.MethodPost, "/v1/verification/complete", "gw", map[string]string{"requester": "u1", "code": "nope"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "No pending authentication for this combination of user and verification code.", body["message"])

	status, body = a.do(http.MethodPost, "/v1/verification/complete", "gw", map[string]string{"requester": "u1", "code": lastCode(t, a.mailer)})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, "Teacher", body["role"].(map[string]any)["name"])

	status, body = a.do(http.MethodGet, "/v1/verification/u1", "gw", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "authenticated", body["state"])

	status, body = a.do(http.MethodGet, "/v1/admin/whois/ab1", "adm", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["authentications"], 1)
}

func TestUnknownIdentityIs404(t *testing.T) {
	a := newAPI(t)
	status, body := a.do(http.MethodPost, "/v1/verification/begin", "gw", map[string]string{"requester": "u1", "institutional_id": "missing"})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Couldn't find KTH ID 'missing'", body["message"])
}

func TestKeysAreEnforced(t *testing.T) {
	a := newAPI(t)
	status, _ := a.do(http.MethodPost, "/v1/verification/begin", "", map[string]string{"requester": "u1", "institutional_id": "ab1"})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodGet, "/v1/admin/window", "gw", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestPassphraseFlow(t *testing.T) {
	a := newAPI(t)

	status, body := a.do(http.MethodPost, "/v1/admin/links", "adm", map[string]string{"phrase": "autumn24", "role_id": "300"})
	require.Equal(t, http.StatusOK, status, body)
	require.Equal(t, true, body["created"])

	status, body = a.do(http.MethodPost, "/v1/passphrase/redeem", "gw", map[string]string{"requester": "u9", "phrase": "autumn24"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "registration_closed", body["code"])

	status, _ = a.do(http.MethodPost, "/v1/admin/window", "adm", map[string]string{"phrase": "autumn24", "by": "mod"})
	require.Equal(t, http.StatusOK, status)

	status, body = a.do(http.MethodPost, "/v1/admin/window", "adm", map[string]string{"phrase": "spring25", "by": "mod"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "window_already_open", body["code"])

	status, body = a.do(http.MethodPost, "/v1/passphrase/redeem", "gw", map[string]string{"requester": "u9", "phrase": "autumn24"})
	require.Equal(t, http.StatusOK, status, body)
	require.Len(t, body["granted"], 1)

	status, body = a.do(http.MethodGet, "/v1/admin/links/autumn24", "adm", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Freshers", body["message"])

	status, body = a.do(http.MethodDelete, "/v1/admin/window?by=mod", "adm", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "autumn24", body["previous"])

	status, body = a.do(http.MethodGet, "/v1/admin/window", "adm", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, false, body["open"])
}

func TestReadyz(t *testing.T) {
	a := newAPI(t)
	status, body := a.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["code"])
}
