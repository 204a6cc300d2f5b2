package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/rolegate/internal/passphrase"
	"github.com/dropDatabas3/rolegate/internal/platform"
)

// stubPassphrase responde valores fijos; WindowStatus simula una ventana ya
// cerrada por otro moderador.
type stubPassphrase struct {
	opened   string
	roles    []platform.Role
	rolesErr error
}

func (s *stubPassphrase) Redeem(context.Context, string, string) (passphrase.Redemption, error) {
	return passphrase.Redemption{}, nil
}
func (s *stubPassphrase) OpenWindow(context.Context, string, string) (string, error) {
	return s.opened, nil
}
func (s *stubPassphrase) CloseWindow(context.Context, string) (string, bool) {
	return "", false
}
func (s *stubPassphrase) WindowStatus() (string, bool) { return "", false }
func (s *stubPassphrase) Link(context.Context, string, string) (platform.Role, bool, error) {
	return platform.Role{}, false, nil
}
func (s *stubPassphrase) Unlink(context.Context, string, string) (int64, error) {
	return 0, nil
}
func (s *stubPassphrase) Phrases(context.Context) ([]string, error) { return nil, nil }
func (s *stubPassphrase) Roles(context.Context, string) ([]platform.Role, error) {
	return s.roles, s.rolesErr
}

func call(t *testing.T, h http.HandlerFunc, method, pattern, target, body string) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestOpenWindowRepliesWithStoredPhrase(t *testing.T) {
	h := NewPassphrase(&stubPassphrase{opened: "autumn24"})

	status, body := call(t, h.OpenWindow, http.MethodPost, "/window", "/window", `{"phrase":" autumn24 ","by":"mod"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "autumn24", body["phrase"])
	require.Equal(t, true, body["open"])
	require.Equal(t, "Registration opened with passphrase 'autumn24'.", body["message"])
}

func TestListRolesEmptyIsArray(t *testing.T) {
	h := NewPassphrase(&stubPassphrase{})

	status, body := call(t, h.ListRoles, http.MethodGet, "/links/{phrase}", "/links/autumn24", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []any{}, body["roles"])
	require.Equal(t, "No roles currently associated with phrase 'autumn24'.", body["message"])
}

func TestListRolesPlatformDown(t *testing.T) {
	h := NewPassphrase(&stubPassphrase{rolesErr: passphrase.ErrPlatformUnavailable})

	status, body := call(t, h.ListRoles, http.MethodGet, "/links/{phrase}", "/links/autumn24", "")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "platform_unavailable", body["code"])
}
