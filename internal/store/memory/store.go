// Package memory implementa repository.Store en memoria.
// Útil para desarrollo (storage.driver: memory) y para los tests del motor.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/rolegate/internal/domain/repository"
)

type state struct {
	pending map[string]repository.PendingAuth
	auths   map[string]repository.Authentication
	links   []repository.LinkedRole
	grants  []repository.PassphraseGrant
}

func newState() *state {
	return &state{
		pending: make(map[string]repository.PendingAuth),
		auths:   make(map[string]repository.Authentication),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.pending {
		cp.pending[k] = v
	}
	for k, v := range s.auths {
		cp.auths[k] = v
	}
	cp.links = append([]repository.LinkedRole(nil), s.links...)
	cp.grants = append([]repository.PassphraseGrant(nil), s.grants...)
	return cp
}

// guard abstrae el lock: el Store usa su mutex, una Tx ya lo tiene tomado.
type guard interface {
	Lock()
	Unlock()
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Store es un repository.Store en memoria. Las transacciones serializan todo el
// store: mientras corre InTx ninguna otra operación avanza.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New crea un Store vacío.
func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Verifications() repository.VerificationRepository {
	return &verifications{g: &s.mu, st: s.st, now: s.now}
}

func (s *Store) Links() repository.LinkedRoleRepository {
	return &links{g: &s.mu, st: s.st}
}

func (s *Store) Grants() repository.GrantRepository {
	return &grants{g: &s.mu, st: s.st}
}

// InTx trabaja sobre una copia del estado y la publica solo si fn retorna nil.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	*s.st = *work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

type tx struct{ st *state }

func (t *tx) Links() repository.LinkedRoleRepository { return &links{g: noLock{}, st: t.st} }
func (t *tx) Grants() repository.GrantRepository     { return &grants{g: noLock{}, st: t.st} }

// ─── Verifications ───

type verifications struct {
	g   guard
	st  *state
	now func() time.Time
}

func (r *verifications) stateOf(requester string) repository.AuthState {
	if _, ok := r.st.auths[requester]; ok {
		return repository.StateAuthenticated
	}
	if _, ok := r.st.pending[requester]; ok {
		return repository.StatePending
	}
	return repository.StateAbsent
}

func (r *verifications) State(_ context.Context, requester string) (repository.AuthState, error) {
	r.g.Lock()
	defer r.g.Unlock()
	return r.stateOf(requester), nil
}

func (r *verifications) CreatePending(_ context.Context, p repository.PendingAuth) error {
	if p.Requester == "" || p.InstitutionalID == "" || p.Code == "" {
		return repository.ErrInvalidInput
	}
	r.g.Lock()
	defer r.g.Unlock()
	if r.stateOf(p.Requester) != repository.StateAbsent {
		return repository.ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	r.st.pending[p.Requester] = p
	return nil
}

func (r *verifications) GetPending(_ context.Context, requester string) (*repository.PendingAuth, error) {
	r.g.Lock()
	defer r.g.Unlock()
	p, ok := r.st.pending[requester]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *verifications) FindPending(_ context.Context, requester, code string) (*repository.PendingAuth, error) {
	r.g.Lock()
	defer r.g.Unlock()
	p, ok := r.st.pending[requester]
	if !ok || p.Code != code {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *verifications) CompletePending(_ context.Context, code string, a repository.Authentication) error {
	r.g.Lock()
	defer r.g.Unlock()
	if _, ok := r.st.auths[a.Requester]; ok {
		return repository.ErrConflict
	}
	p, ok := r.st.pending[a.Requester]
	if !ok || p.Code != code {
		return repository.ErrNotFound
	}
	if a.GrantedAt.IsZero() {
		a.GrantedAt = r.now().UTC()
	}
	delete(r.st.pending, a.Requester)
	r.st.auths[a.Requester] = a
	return nil
}

func (r *verifications) GetAuthentication(_ context.Context, requester string) (*repository.Authentication, error) {
	r.g.Lock()
	defer r.g.Unlock()
	a, ok := r.st.auths[requester]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *verifications) ListByInstitutionalID(_ context.Context, institutionalID string) ([]repository.Authentication, error) {
	r.g.Lock()
	defer r.g.Unlock()
	var out []repository.Authentication
	for _, a := range r.st.auths {
		if a.InstitutionalID == institutionalID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

// ─── Links ───

type links struct {
	g  guard
	st *state
}

func (r *links) Link(_ context.Context, passphrase, roleID string) (bool, error) {
	if passphrase == "" || roleID == "" {
		return false, repository.ErrInvalidInput
	}
	r.g.Lock()
	defer r.g.Unlock()
	for _, l := range r.st.links {
		if l.Passphrase == passphrase && l.RoleID == roleID {
			return false, nil
		}
	}
	r.st.links = append(r.st.links, repository.LinkedRole{Passphrase: passphrase, RoleID: roleID})
	return true, nil
}

func (r *links) Unlink(_ context.Context, passphrase, roleID string) (int64, error) {
	r.g.Lock()
	defer r.g.Unlock()
	kept := r.st.links[:0]
	var n int64
	for _, l := range r.st.links {
		if l.Passphrase == passphrase && l.RoleID == roleID {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.st.links = kept
	return n, nil
}

func (r *links) RolesFor(_ context.Context, passphrase string) ([]string, error) {
	r.g.Lock()
	defer r.g.Unlock()
	var out []string
	for _, l := range r.st.links {
		if l.Passphrase == passphrase {
			out = append(out, l.RoleID)
		}
	}
	return out, nil
}

func (r *links) Phrases(context.Context) ([]string, error) {
	r.g.Lock()
	defer r.g.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, l := range r.st.links {
		if _, ok := seen[l.Passphrase]; ok {
			continue
		}
		seen[l.Passphrase] = struct{}{}
		out = append(out, l.Passphrase)
	}
	sort.Strings(out)
	return out, nil
}

// ─── Grants ───

type grants struct {
	g  guard
	st *state
}

func (r *grants) Record(_ context.Context, g repository.PassphraseGrant) error {
	if g.ID == "" || g.Requester == "" || g.RoleID == "" {
		return repository.ErrInvalidInput
	}
	r.g.Lock()
	defer r.g.Unlock()
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	r.st.grants = append(r.st.grants, g)
	return nil
}

func (r *grants) ListByRequester(_ context.Context, requester string) ([]repository.PassphraseGrant, error) {
	r.g.Lock()
	defer r.g.Unlock()
	var out []repository.PassphraseGrant
	for _, g := range r.st.grants {
		if g.Requester == requester {
			out = append(out, g)
		}
	}
	return out, nil
}
