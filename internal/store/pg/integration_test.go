package pg

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/migrations/postgres"
)

// openTestStore abre ROLEGATE_TEST_DSN y aplica las migraciones. Sin la
// variable el test se saltea.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ROLEGATE_TEST_DSN")
	if dsn == "" {
		t.Skip("ROLEGATE_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := New(ctx, dsn, Options{MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Ping(ctx))

	_, err = NewMigrator(postgres.FS, postgres.Dir).Run(ctx, s)
	require.NoError(t, err)
	return s
}

func newRequester() string { return "it-" + uuid.NewString() }

func TestPGCreatePendingIsExclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	requester := newRequester()
	repo := s.Verifications()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreatePending(ctx, repository.PendingAuth{
				Requester:       requester,
				InstitutionalID: "ab1",
				Code:            uuid.NewString()[:8],
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrConflict):
				clash++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, clash)

	st, err := repo.State(ctx, requester)
	require.NoError(t, err)
	require.Equal(t, repository.StatePending, st)
}

func TestPGCompletePending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	requester := newRequester()
	repo := s.Verifications()

	require.NoError(t, repo.CreatePending(ctx, repository.PendingAuth{
		Requester: requester, InstitutionalID: "jh123", Code: "CODE1234",
	}))
	auth := repository.Authentication{Requester: requester, InstitutionalID: "jh123", RoleID: "200"}

	err := repo.CompletePending(ctx, "WRONG000", auth)
	require.ErrorIs(t, err, repository.ErrNotFound)
	st, err := repo.State(ctx, requester)
	require.NoError(t, err)
	require.Equal(t, repository.StatePending, st, "a wrong code leaves the pending row")

	require.NoError(t, repo.CompletePending(ctx, "CODE1234", auth))

	st, err = repo.State(ctx, requester)
	require.NoError(t, err)
	require.Equal(t, repository.StateAuthenticated, st)
	_, err = repo.GetPending(ctx, requester)
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetAuthentication(ctx, requester)
	require.NoError(t, err)
	require.Equal(t, "jh123", got.InstitutionalID)
	require.Equal(t, "200", got.RoleID)

	err = repo.CompletePending(ctx, "CODE1234", auth)
	require.ErrorIs(t, err, repository.ErrConflict)

	err = repo.CreatePending(ctx, repository.PendingAuth{Requester: requester, InstitutionalID: "jh123", Code: "CODE5678"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestPGInTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	phrase := "it-" + uuid.NewString()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Links().Link(ctx, phrase, "1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	roles, err := s.Links().RolesFor(ctx, phrase)
	require.NoError(t, err)
	require.Empty(t, roles)
}
