// Package passphrase implementa el registro por passphrase compartida: una
// ventana abierta por moderación (Window) y el canje que otorga los roles
// vinculados a la frase en linked_roles (Registrar).
package passphrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/rolegate/internal/audit"
	"github.com/dropDatabas3/rolegate/internal/domain/errs"
	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"github.com/dropDatabas3/rolegate/internal/platform"
)

// Platform es lo que el registrar necesita de la plataforma de chat.
type Platform interface {
	platform.RoleGranter
	platform.RoleDirectory
	platform.MemberRoles
	platform.ModLog
}

// Config del registrar.
type Config struct {
	// RequireWindow: el canje exige la ventana abierta y la frase igual a la
	// de la ventana. false = canje solo contra linked_roles.
	RequireWindow bool
}

// Registrar canjea passphrases y administra sus vínculos.
type Registrar struct {
	cfg    Config
	window *Window
	store  repository.Store
	plat   Platform
	now    func() time.Time
}

// NewRegistrar crea un Registrar. window nil crea una ventana cerrada.
func NewRegistrar(cfg Config, window *Window, store repository.Store, plat Platform) *Registrar {
	if window == nil {
		window = NewWindow()
	}
	return &Registrar{cfg: cfg, window: window, store: store, plat: plat, now: time.Now}
}

// Window expone la ventana.
func (r *Registrar) Window() *Window { return r.window }

// WindowStatus retorna la frase abierta, si hay.
func (r *Registrar) WindowStatus() (string, bool) { return r.window.Status() }

// Redemption es el resultado de un canje.
type Redemption struct {
	Granted     []platform.Role `json:"granted"`
	AlreadyHeld []platform.Role `json:"already_held"`
}

// ─── Ventana ───

// OpenWindow abre la ventana y lo deja en auditoría. Retorna la frase
// guardada, ya normalizada.
func (r *Registrar) OpenWindow(ctx context.Context, by, phrase string) (string, error) {
	phrase = strings.TrimSpace(phrase)
	existing, err := r.window.Open(phrase)
	if errors.Is(err, ErrAlreadyOpen) {
		return "", ErrAlreadyOpen.WithMessage("Registration is already open with passphrase '%s'.", existing)
	}
	if err != nil {
		return "", err
	}
	audit.Log(ctx, audit.EventWindowOpened, zap.String("by", by))
	r.modlog(ctx, fmt.Sprintf("Passphrase registration opened by <@%s>.", by))
	return phrase, nil
}

// CloseWindow cierra la ventana; retorna la frase que estaba abierta.
func (r *Registrar) CloseWindow(ctx context.Context, by string) (string, bool) {
	prev, wasOpen := r.window.Close()
	if wasOpen {
		audit.Log(ctx, audit.EventWindowClosed, zap.String("by", by))
		r.modlog(ctx, fmt.Sprintf("Passphrase registration closed by <@%s>.", by))
	}
	return prev, wasOpen
}

// ─── Canje ───

// Redeem otorga a requester todos los roles vinculados a phrase. Los grants y
// las filas de auditoría van en una sola transacción; si un grant falla se
// revocan los roles ya otorgados en este canje.
func (r *Registrar) Redeem(ctx context.Context, requester, phrase string) (red Redemption, err error) {
	requester = strings.TrimSpace(requester)
	phrase = strings.TrimSpace(phrase)
	log := logger.From(ctx).With(logger.Op("passphrase.redeem"), logger.Requester(requester))
	defer func() { metrics.PassphraseRedemptions.WithLabelValues(outcome(err)).Inc() }()

	if requester == "" {
		return red, ErrEmptyRequester
	}
	if phrase == "" {
		return red, ErrEmptyPhrase
	}

	if r.cfg.RequireWindow {
		// Snapshot único: no se vuelve a leer la ventana después de este punto.
		current, open := r.window.Status()
		if !open {
			return red, ErrRegistrationClosed
		}
		if phrase != current {
			return red, ErrWrongPhrase
		}
	}

	var granted []string
	err = r.store.InTx(ctx, func(tx repository.Tx) error {
		red, granted = Redemption{}, nil

		ids, err := tx.Links().RolesFor(ctx, phrase)
		if err != nil {
			return errs.Internal(err)
		}
		roles, err := r.resolve(ctx, ids)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			return ErrNotLinked
		}

		current, err := r.plat.RolesOf(ctx, requester)
		if err != nil {
			return ErrPlatformUnavailable.WithCause(err)
		}
		held := make(map[string]bool, len(current))
		for _, id := range current {
			held[id] = true
		}

		for _, role := range roles {
			already := held[role.ID]
			if !already {
				if err := r.plat.GrantRole(ctx, requester, role.ID); err != nil {
					return ErrGrantFailed.WithCause(fmt.Errorf("role %s: %w", role.ID, err))
				}
				granted = append(granted, role.ID)
				red.Granted = append(red.Granted, role)
			} else {
				red.AlreadyHeld = append(red.AlreadyHeld, role)
			}
			if err := tx.Grants().Record(ctx, repository.PassphraseGrant{
				ID:          uuid.NewString(),
				Requester:   requester,
				Passphrase:  phrase,
				RoleID:      role.ID,
				AlreadyHeld: already,
				GrantedAt:   r.now().UTC(),
			}); err != nil {
				return errs.Internal(err)
			}
		}
		return nil
	})
	if err != nil {
		if cerr := r.compensate(ctx, requester, granted); cerr != nil {
			log.Error("passphrase compensation failed", logger.Roles(granted), logger.Err(cerr))
			r.modlog(ctx, fmt.Sprintf("INCONSISTENCY: passphrase redemption by <@%s> failed and roles %v could not be revoked: %v",
				requester, granted, cerr))
			return Redemption{}, ErrCompensationFailed.WithCause(errors.Join(err, cerr))
		}
		if errs.KindOf(err) == errs.KindInternal {
			log.Error("passphrase redemption failed", logger.Err(err))
			var e *errs.Error
			if !errors.As(err, &e) {
				err = errs.Internal(err)
			}
		}
		return Redemption{}, err
	}

	audit.Log(ctx, audit.EventPassphraseRedeemed,
		logger.Requester(requester),
		logger.Roles(roleNames(red.Granted)),
		zap.Strings("already_held", roleNames(red.AlreadyHeld)),
	)
	log.Info("passphrase redeemed", logger.Count(len(red.Granted)))
	return red, nil
}

// resolve traduce ids a roles. Los ids que ya no existen en la plataforma se
// omiten; cualquier otro error corta con ErrPlatformUnavailable.
func (r *Registrar) resolve(ctx context.Context, ids []string) ([]platform.Role, error) {
	out := make([]platform.Role, 0, len(ids))
	for _, id := range ids {
		role, err := r.plat.FindByID(ctx, id)
		if errors.Is(err, platform.ErrRoleNotFound) {
			logger.From(ctx).Warn("linked role no longer exists", logger.Role(id))
			continue
		}
		if err != nil {
			return nil, ErrPlatformUnavailable.WithCause(fmt.Errorf("role %s: %w", id, err))
		}
		out = append(out, role)
	}
	return out, nil
}

func (r *Registrar) compensate(ctx context.Context, requester string, granted []string) error {
	var failed []error
	for i := len(granted) - 1; i >= 0; i-- {
		if err := r.plat.RevokeRole(ctx, requester, granted[i]); err != nil {
			failed = append(failed, fmt.Errorf("revoke %s: %w", granted[i], err))
		}
	}
	return errors.Join(failed...)
}

// ─── Vínculos (moderación) ───

// Link vincula roleID a phrase. created es false si ya estaba vinculado.
func (r *Registrar) Link(ctx context.Context, phrase, roleID string) (platform.Role, bool, error) {
	phrase, roleID = strings.TrimSpace(phrase), strings.TrimSpace(roleID)
	if phrase == "" {
		return platform.Role{}, false, ErrEmptyPhrase
	}
	if roleID == "" {
		return platform.Role{}, false, ErrEmptyRole
	}
	role, err := r.plat.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, platform.ErrRoleNotFound) {
			return platform.Role{}, false, ErrRoleNotFound
		}
		return platform.Role{}, false, ErrPlatformUnavailable.WithCause(err)
	}
	created, err := r.store.Links().Link(ctx, phrase, role.ID)
	if err != nil {
		return platform.Role{}, false, errs.Internal(err)
	}
	if created {
		audit.Log(ctx, audit.EventRoleLinked, logger.Role(role.Name), zap.String("role_id", role.ID))
	}
	return role, created, nil
}

// Unlink elimina el vínculo y retorna cuántas filas se borraron.
func (r *Registrar) Unlink(ctx context.Context, phrase, roleID string) (int64, error) {
	phrase, roleID = strings.TrimSpace(phrase), strings.TrimSpace(roleID)
	if phrase == "" {
		return 0, ErrEmptyPhrase
	}
	if roleID == "" {
		return 0, ErrEmptyRole
	}
	n, err := r.store.Links().Unlink(ctx, phrase, roleID)
	if err != nil {
		return 0, errs.Internal(err)
	}
	if n > 0 {
		audit.Log(ctx, audit.EventRoleUnlinked, zap.String("role_id", roleID))
	}
	return n, nil
}

// Phrases lista las passphrases con al menos un rol.
func (r *Registrar) Phrases(ctx context.Context) ([]string, error) {
	out, err := r.store.Links().Phrases(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return out, nil
}

// Roles lista los roles vinculados a phrase que existen en la plataforma.
func (r *Registrar) Roles(ctx context.Context, phrase string) ([]platform.Role, error) {
	ids, err := r.store.Links().RolesFor(ctx, strings.TrimSpace(phrase))
	if err != nil {
		return nil, errs.Internal(err)
	}
	return r.resolve(ctx, ids)
}

func (r *Registrar) modlog(ctx context.Context, msg string) {
	if err := r.plat.Post(ctx, msg); err != nil {
		logger.From(ctx).Warn("modlog post failed", logger.Err(err))
	}
}

func roleNames(roles []platform.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Name
	}
	return out
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.CodeOf(err)
}
