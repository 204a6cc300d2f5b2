package verification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/rolegate/internal/directory"
	"github.com/dropDatabas3/rolegate/internal/domain/errs"
	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/email"
	"github.com/dropDatabas3/rolegate/internal/identity"
	"github.com/dropDatabas3/rolegate/internal/platform"
	"github.com/dropDatabas3/rolegate/internal/platform/platformtest"
	"github.com/dropDatabas3/rolegate/internal/rate"
	"github.com/dropDatabas3/rolegate/internal/store/memory"
)

// ─── Fakes ───

type fakeDirectory struct {
	snap directory.Snapshot
	err  error
}

func (f fakeDirectory) ResolveStaffIDs(context.Context) (directory.Snapshot, error) {
	return f.snap, f.err
}

type fakeIdentity struct {
	err error
}

func (f fakeIdentity) Lookup(_ context.Context, id string) (identity.Identity, error) {
	if f.err != nil {
		return identity.Identity{}, f.err
	}
	return identity.Identity{InstitutionalID: id, Email: id + "@kth.se", DisplayName: strings.ToUpper(id)}, nil
}

type flakyMailer struct {
	mu   sync.Mutex
	fail bool
	sent []email.Message
}

func (m *flakyMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("dial tcp 127.0.0.1:587: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

var (
	staffRole  = platform.Role{ID: "100", Name: "Teacher"}
	memberRole = platform.Role{ID: "200", Name: "Student"}
)

type env struct {
	svc    *Service
	store  *memory.Store
	plat   *platformtest.Fake
	mailer *flakyMailer
}

type option func(*Config, *Deps)

func newEnv(t *testing.T, opts ...option) *env {
	t.Helper()
	e := &env{
		store:  memory.New(),
		plat:   platformtest.New(staffRole, memberRole),
		mailer: &flakyMailer{},
	}
	cfg := Config{StaffRole: "Teacher", MemberRole: "Student", InDirectory: ClassStaff}
	deps := Deps{
		Store:     e.store,
		Directory: fakeDirectory{snap: directory.NewSnapshot("ab1", "cd2")},
		Identity:  fakeIdentity{},
		Mailer:    e.mailer,
		Platform:  e.plat,
	}
	for _, o := range opts {
		o(&cfg, &deps)
	}
	svc, err := New(cfg, deps)
	require.NoError(t, err)
	svc.newCode = func() (string, error) { return "Abc12345", nil }
	e.svc = svc
	return e
}

func requireKind(t *testing.T, err error, kind errs.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, errs.KindOf(err), err.Error())
	require.Equal(t, code, errs.CodeOf(err))
}

// ─── Begin ───

func TestBeginSendsCodeAfterPersisting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)
	require.True(t, res.Delivered)
	require.Equal(t, "jh123@kth.se", res.Identity.Email)

	p, err := e.store.Verifications().GetPending(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "jh123", p.InstitutionalID)
	require.Equal(t, "Abc12345", p.Code)

	require.Len(t, e.mailer.sent, 1)
	require.Equal(t, "jh123@kth.se", e.mailer.sent[0].To)
	require.Contains(t, e.mailer.sent[0].Body, "Abc12345")
}

func TestSecondBeginIsStateConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	e.svc.newCode = func() (string, error) { return "Zzz99999", nil }
	_, err = e.svc.Begin(ctx, "u1", "jh123")
	requireKind(t, err, errs.KindStateConflict, "already_pending")

	p, err := e.store.Verifications().GetPending(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Abc12345", p.Code, "the first code must survive")
	require.Len(t, e.mailer.sent, 1)
}

func TestConcurrentBeginIssuesOneCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 12
	errsCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Begin(ctx, "u1", "jh123")
			errsCh <- err
		}()
	}
	wg.Wait()
	close(errsCh)

	ok := 0
	for err := range errsCh {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, errs.KindStateConflict, "already_pending")
	}
	require.Equal(t, 1, ok)
	require.Len(t, e.mailer.sent, 1)
}

func TestBeginLookupFailuresPersistNothing(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind errs.Kind
		code string
	}{
		{"unreachable", identity.ErrUnreachable, errs.KindExternalUnavailable, "identity_unreachable"},
		{"not found", identity.ErrNotFound, errs.KindNotFound, "identity_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, func(_ *Config, d *Deps) { d.Identity = fakeIdentity{err: tc.err} })
			ctx := context.Background()

			_, err := e.svc.Begin(ctx, "u1", "nobody")
			requireKind(t, err, tc.kind, tc.code)

			st, err := e.store.Verifications().State(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, repository.StateAbsent, st)
			require.Empty(t, e.mailer.sent)
		})
	}
}

func TestBeginNotFoundMessageNamesTheID(t *testing.T) {
	e := newEnv(t, func(_ *Config, d *Deps) { d.Identity = fakeIdentity{err: identity.ErrNotFound} })
	_, err := e.svc.Begin(context.Background(), "u1", "xx0")
	require.Equal(t, "Couldn't find KTH ID 'xx0'", errs.MessageOf(err))
}

func TestDeliveryFailureKeepsPendingAndResendRecovers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mailer.fail = true

	res, err := e.svc.Begin(ctx, "u1", "jh123")
	requireKind(t, err, errs.KindExternalUnavailable, "delivery_failed")
	require.False(t, res.Delivered)
	require.Len(t, e.plat.ModLogPosts(), 1)

	st, err := e.store.Verifications().State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, repository.StatePending, st)

	e.mailer.fail = false
	res, err = e.svc.Resend(ctx, "u1")
	require.NoError(t, err)
	require.True(t, res.Delivered)
	require.Contains(t, e.mailer.sent[0].Body, "Abc12345")
}

func TestResendWithoutPending(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Resend(context.Background(), "u1")
	requireKind(t, err, errs.KindNotFound, "no_pending")
}

func TestBeginIsThrottled(t *testing.T) {
	e := newEnv(t, func(_ *Config, d *Deps) { d.Limiter = rate.NewMemoryLimiter(1, time.Hour) })
	ctx := context.Background()

	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)
	_, err = e.svc.Begin(ctx, "u1", "jh123")
	requireKind(t, err, errs.KindThrottled, "throttled")
}

func TestBeginRejectsEmptyInput(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Begin(context.Background(), "u1", "  ")
	requireKind(t, err, errs.KindInvalidInput, "missing_institutional_id")
}

// ─── Complete ───

func TestCompleteWithUnknownCodeIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	_, err = e.svc.Complete(ctx, "u1", "WRONG000")
	requireKind(t, err, errs.KindNotFound, "code_not_found")

	// el código de otro requester tampoco sirve
	_, err = e.svc.Complete(ctx, "u2", "Abc12345")
	requireKind(t, err, errs.KindNotFound, "code_not_found")

	require.Empty(t, e.plat.GrantCalls())
	st, err := e.store.Verifications().State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, repository.StatePending, st)
}

func TestCompleteOnceThenConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	role, err := e.svc.Complete(ctx, "u1", "Abc12345")
	require.NoError(t, err)
	require.Equal(t, memberRole, role)

	st, err := e.store.Verifications().State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, repository.StateAuthenticated, st)

	_, err = e.svc.Complete(ctx, "u1", "Abc12345")
	requireKind(t, err, errs.KindStateConflict, "already_authenticated")
	require.Len(t, e.plat.GrantCalls(), 1)

	_, err = e.svc.Begin(ctx, "u1", "jh123")
	requireKind(t, err, errs.KindStateConflict, "already_authenticated")
}

func TestClassificationIsDeterministic(t *testing.T) {
	cases := []struct {
		id   string
		want platform.Role
	}{
		{"ab1", staffRole},
		{"zz9", memberRole},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				e := newEnv(t)
				ctx := context.Background()
				_, err := e.svc.Begin(ctx, "u1", tc.id)
				require.NoError(t, err)

				role, err := e.svc.Complete(ctx, "u1", "Abc12345")
				require.NoError(t, err)
				require.Equal(t, tc.want, role)
				require.Equal(t, []platformtest.Call{{User: "u1", RoleID: tc.want.ID}}, e.plat.GrantCalls())
			}
		})
	}
}

func TestClassificationDirectionComesFromConfig(t *testing.T) {
	e := newEnv(t, func(c *Config, _ *Deps) { c.InDirectory = ClassMember })
	ctx := context.Background()

	class, role, err := e.svc.Classify(ctx, "ab1")
	require.NoError(t, err)
	require.Equal(t, ClassMember, class)
	require.Equal(t, memberRole, role)

	class, role, err = e.svc.Classify(ctx, "zz9")
	require.NoError(t, err)
	require.Equal(t, ClassStaff, class)
	require.Equal(t, staffRole, role)
}

func TestNewRequiresClassification(t *testing.T) {
	_, err := New(Config{StaffRole: "Teacher", MemberRole: "Student"}, Deps{})
	require.Error(t, err)
}

func TestMemberNotInDirectoryRecordsOneAuthentication(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	role, err := e.svc.Complete(ctx, "u1", "Abc12345")
	require.NoError(t, err)
	require.Equal(t, memberRole, role)

	list, err := e.svc.Whois(ctx, "jh123")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "u1", list[0].Requester)
	require.Equal(t, "jh123", list[0].InstitutionalID)
	require.Equal(t, memberRole.ID, list[0].RoleID)

	status, err := e.svc.Status(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, repository.StateAuthenticated, status.State)
}

func TestGrantFailureKeepsCodeValid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	e.plat.FailGrant(memberRole.ID)
	_, err = e.svc.Complete(ctx, "u1", "Abc12345")
	requireKind(t, err, errs.KindExternalUnavailable, "grant_failed")

	st, err := e.store.Verifications().State(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, repository.StatePending, st)

	healthy := platformtest.New(staffRole, memberRole)
	e.svc.plat = healthy
	role, err := e.svc.Complete(ctx, "u1", "Abc12345")
	require.NoError(t, err)
	require.Equal(t, memberRole, role)
}

func TestDirectoryFailuresAbortBeforeGrant(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{directory.ErrUnavailable, "directory_unavailable"},
		{directory.ErrParse, "directory_format"},
	}
	for _, tc := range cases {
		e := newEnv(t, func(_ *Config, d *Deps) { d.Directory = fakeDirectory{err: tc.err} })
		ctx := context.Background()
		_, err := e.svc.Begin(ctx, "u1", "jh123")
		require.NoError(t, err)

		_, err = e.svc.Complete(ctx, "u1", "Abc12345")
		requireKind(t, err, errs.KindExternalUnavailable, tc.code)
		require.Empty(t, e.plat.GrantCalls())
	}
}

func TestMissingRoleIsReported(t *testing.T) {
	e := newEnv(t, func(c *Config, _ *Deps) { c.MemberRole = "Alumni" })
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	_, err = e.svc.Complete(ctx, "u1", "Abc12345")
	requireKind(t, err, errs.KindNotFound, "role_not_configured")
}

// failingAudit rompe la escritura de la autenticación.
type failingAudit struct{ repository.Store }

func (f failingAudit) Verifications() repository.VerificationRepository {
	return failingVerifications{f.Store.Verifications()}
}

type failingVerifications struct{ repository.VerificationRepository }

func (failingVerifications) CompletePending(context.Context, string, repository.Authentication) error {
	return errors.New("connection reset by peer")
}

func TestAuditWriteFailureIsPartialFailure(t *testing.T) {
	e := newEnv(t)
	e.svc.store = failingAudit{e.store}
	ctx := context.Background()
	_, err := e.svc.Begin(ctx, "u1", "jh123")
	require.NoError(t, err)

	_, err = e.svc.Complete(ctx, "u1", "Abc12345")
	requireKind(t, err, errs.KindPartialFailure, "audit_write_failed")
	require.Len(t, e.plat.GrantCalls(), 1)
	require.NotEmpty(t, e.plat.ModLogPosts())
}

// ─── Código ───

func TestNewCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c, err := NewCode()
		require.NoError(t, err)
		require.Len(t, c, CodeLength)
		for _, r := range c {
			require.True(t, strings.ContainsRune(alphabet, r), c)
		}
		seen[c] = true
	}
	require.Greater(t, len(seen), 190)
}
