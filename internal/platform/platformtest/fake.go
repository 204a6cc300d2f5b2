// Package platformtest provee una plataforma en memoria para tests.
package platformtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/rolegate/internal/platform"
)

// ErrInjected es el error de las fallas configuradas con FailGrant y FailLookup.
var ErrInjected = errors.New("platform: injected failure")

// Fake implementa platform.Platform en memoria.
type Fake struct {
	mu       sync.Mutex
	roles    []platform.Role
	members  map[string]map[string]bool
	failRole map[string]bool
	failFind map[string]bool
	revokeKO bool
	Grants   []Call
	Revokes  []Call
	ModLog   []string
}

// Call registra una llamada de grant/revoke.
type Call struct {
	User   string
	RoleID string
}

var _ platform.Platform = (*Fake)(nil)

// New crea un Fake con los roles dados.
func New(roles ...platform.Role) *Fake {
	return &Fake{
		roles:    roles,
		members:  make(map[string]map[string]bool),
		failRole: make(map[string]bool),
		failFind: make(map[string]bool),
	}
}

// FailGrant hace fallar los grants de roleID.
func (f *Fake) FailGrant(roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRole[roleID] = true
}

// FailLookup hace fallar FindByID de roleID con un error de transporte.
func (f *Fake) FailLookup(roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFind[roleID] = true
}

// FailRevoke hace fallar todos los revokes.
func (f *Fake) FailRevoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeKO = true
}

// Give asigna roleID a user sin registrar la llamada.
func (f *Fake) Give(user, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set(user, roleID, true)
}

func (f *Fake) set(user, roleID string, on bool) {
	if f.members[user] == nil {
		f.members[user] = make(map[string]bool)
	}
	if on {
		f.members[user][roleID] = true
	} else {
		delete(f.members[user], roleID)
	}
}

func (f *Fake) GrantRole(_ context.Context, user, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRole[roleID] {
		return ErrInjected
	}
	f.Grants = append(f.Grants, Call{User: user, RoleID: roleID})
	f.set(user, roleID, true)
	return nil
}

func (f *Fake) RevokeRole(_ context.Context, user, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeKO {
		return ErrInjected
	}
	f.Revokes = append(f.Revokes, Call{User: user, RoleID: roleID})
	f.set(user, roleID, false)
	return nil
}

func (f *Fake) FindByName(_ context.Context, name string) (platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return platform.Role{}, platform.ErrRoleNotFound
}

func (f *Fake) FindByID(_ context.Context, id string) (platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFind[id] {
		return platform.Role{}, ErrInjected
	}
	for _, r := range f.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return platform.Role{}, platform.ErrRoleNotFound
}

func (f *Fake) RolesOf(_ context.Context, user string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.members[user]))
	for id := range f.members[user] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f *Fake) Post(_ context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModLog = append(f.ModLog, msg)
	return nil
}

// GrantCalls retorna una copia de los grants registrados.
func (f *Fake) GrantCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.Grants...)
}

// RevokeCalls retorna una copia de los revokes registrados.
func (f *Fake) RevokeCalls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.Revokes...)
}

// ModLogPosts retorna una copia de los mensajes del modlog.
func (f *Fake) ModLogPosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ModLog...)
}
