package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const page = `<html><body><main><div>
<table><tbody>
  <tr><td class="name">Anna Berg</td><td class="email"><a href="mailto:ab1@kth.se">ab1@kth.se</a></td></tr>
  <tr><td class="name">Carl Dahl</td><td class="email"><a href="mailto:cd2@kth.se"> cd2@kth.se</a></td></tr>
  <tr><td class="name">No mail</td><td class="phone"><a href="tel:1">zz9@kth.se</a></td></tr>
</tbody></table>
</div></main></body></html>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveStaffIDs(t *testing.T) {
	srv := serve(t, http.StatusOK, page)

	snap, err := New(srv.URL, time.Second).ResolveStaffIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	require.True(t, snap.Contains("ab1"))
	require.True(t, snap.Contains("cd2"))
	require.False(t, snap.Contains("zz9"), "only td.email cells count")
}

func TestResolveStaffIDsNonSuccessIsUnavailable(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, "upstream")

	_, err := New(srv.URL, time.Second).ResolveStaffIDs(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.False(t, errors.Is(err, ErrParse))
}

func TestResolveStaffIDsNetworkErrorIsUnavailable(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).ResolveStaffIDs(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestResolveStaffIDsMissingMarkersIsParseError(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><body><p>We moved the directory.</p></body></html>`)

	_, err := New(srv.URL, time.Second).ResolveStaffIDs(context.Background())
	require.ErrorIs(t, err, ErrParse)
	require.False(t, errors.Is(err, ErrUnavailable))
}

func TestCustomSelector(t *testing.T) {
	srv := serve(t, http.StatusOK, `<ul><li class="staff"><a>xy7@kth.se</a></li></ul>`)

	snap, err := New(srv.URL, time.Second, WithSelector("li.staff > a")).ResolveStaffIDs(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Contains("xy7"))
}
