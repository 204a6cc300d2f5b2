// Package verification implementa el emisor de códigos de verificación y su
// canje: begin → (e-mail) → complete.
//
// Estados por requester (repository.AuthState):
//
//	absent ──Begin──► pending ──Complete──► authenticated (terminal)
//
// La transición absent→pending es un check-then-insert atómico del store. El rol
// se otorga antes de escribir la autenticación: si el grant falla el requester
// sigue en pending y el mismo código vuelve a servir.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/rolegate/internal/audit"
	"github.com/dropDatabas3/rolegate/internal/directory"
	"github.com/dropDatabas3/rolegate/internal/domain/errs"
	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/email"
	"github.com/dropDatabas3/rolegate/internal/identity"
	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"github.com/dropDatabas3/rolegate/internal/platform"
	"github.com/dropDatabas3/rolegate/internal/rate"
	"go.uber.org/zap"
)

// ─── Colaboradores ───

// StaffDirectory resuelve el conjunto de ids de staff.
type StaffDirectory interface {
	ResolveStaffIDs(ctx context.Context) (directory.Snapshot, error)
}

// IdentityLookup valida un id institucional.
type IdentityLookup interface {
	Lookup(ctx context.Context, id string) (identity.Identity, error)
}

// Platform es lo que el servicio necesita de la plataforma de chat.
type Platform interface {
	platform.RoleGranter
	platform.RoleDirectory
	platform.ModLog
}

// ─── Clasificación ───

// Class es el resultado de clasificar a una persona.
type Class string

const (
	ClassStaff  Class = "staff"
	ClassMember Class = "member"
)

// ParseClass valida un valor de classification.in_directory.
func ParseClass(s string) (Class, error) {
	switch c := Class(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassStaff, ClassMember:
		return c, nil
	}
	return "", fmt.Errorf("verification: unknown class %q (want staff or member)", s)
}

func (c Class) other() Class {
	if c == ClassStaff {
		return ClassMember
	}
	return ClassStaff
}

// Config del servicio.
type Config struct {
	StaffRole  string // nombre del rol staff-equivalente
	MemberRole string // nombre del rol member-equivalente
	// InDirectory es la clase de quien figura en el directorio. Obligatorio.
	InDirectory Class
	Subject     string
	Template    *email.CodeTemplate // nil = email.DefaultCodeTemplate
}

// Deps agrupa los colaboradores.
type Deps struct {
	Store     repository.Store
	Directory StaffDirectory
	Identity  IdentityLookup
	Mailer    email.Mailer
	Platform  Platform
	Limiter   rate.Limiter // nil = sin límite
}

// Service es el motor de verificación por código.
type Service struct {
	cfg     Config
	store   repository.Store
	dir     StaffDirectory
	ident   IdentityLookup
	mailer  email.Mailer
	plat    Platform
	limiter rate.Limiter
	now     func() time.Time
	newCode func() (string, error)
}

// New valida cfg y crea el servicio.
func New(cfg Config, d Deps) (*Service, error) {
	if _, err := ParseClass(string(cfg.InDirectory)); err != nil {
		return nil, err
	}
	if cfg.StaffRole == "" || cfg.MemberRole == "" {
		return nil, errors.New("verification: staff and member role names are required")
	}
	if d.Store == nil || d.Directory == nil || d.Identity == nil || d.Mailer == nil || d.Platform == nil {
		return nil, errors.New("verification: missing dependency")
	}
	if cfg.Template == nil {
		cfg.Template = email.MustCodeTemplate(email.DefaultCodeTemplate)
	}
	if cfg.Subject == "" {
		cfg.Subject = "Discord authentication"
	}
	lim := d.Limiter
	if lim == nil {
		lim = rate.Noop{}
	}
	return &Service{
		cfg:     cfg,
		store:   d.Store,
		dir:     d.Directory,
		ident:   d.Identity,
		mailer:  d.Mailer,
		plat:    d.Platform,
		limiter: lim,
		now:     time.Now,
		newCode: NewCode,
	}, nil
}

// BeginResult describe un begin/resend.
type BeginResult struct {
	Identity  identity.Identity
	Delivered bool
}

// Status es el estado de verificación de un requester.
type Status struct {
	State           repository.AuthState `json:"state"`
	InstitutionalID string               `json:"institutional_id,omitempty"`
	RoleID          string               `json:"role_id,omitempty"`
	Since           time.Time            `json:"since,omitempty"`
}

// ─── Begin / Resend ───

// Begin valida el id, persiste un código pendiente y lo envía por e-mail.
// El código solo se envía si quedó registrado.
func (s *Service) Begin(ctx context.Context, requester, institutionalID string) (res BeginResult, err error) {
	requester = strings.TrimSpace(requester)
	institutionalID = strings.TrimSpace(institutionalID)
	log := logger.From(ctx).With(logger.Op("verification.begin"), logger.Requester(requester), logger.InstitutionalID(institutionalID))
	defer func() { metrics.VerificationsBegun.WithLabelValues(outcome(err)).Inc() }()

	if requester == "" {
		return res, ErrMissingRequester
	}
	if institutionalID == "" {
		return res, ErrMissingID
	}
	if err := s.throttle(ctx, "begin:"+requester); err != nil {
		return res, err
	}
	if err := s.rejectExisting(ctx, requester); err != nil {
		return res, err
	}

	ident, err := s.lookup(ctx, institutionalID)
	if err != nil {
		return res, err
	}
	res.Identity = ident

	code, err := s.newCode()
	if err != nil {
		return res, errs.Internal(fmt.Errorf("generate code: %w", err))
	}

	err = s.store.Verifications().CreatePending(ctx, repository.PendingAuth{
		Requester:       requester,
		InstitutionalID: institutionalID,
		Code:            code,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		if repository.IsConflict(err) {
			// Otro begin concurrente ganó la carrera.
			if rerr := s.rejectExisting(ctx, requester); rerr != nil {
				return res, rerr
			}
			return res, ErrAlreadyPending
		}
		log.Error("persist pending auth failed", logger.Err(err))
		return res, errs.Internal(err)
	}

	audit.Log(ctx, audit.EventVerificationBegun, logger.Requester(requester), logger.InstitutionalID(institutionalID))

	if err := s.deliver(ctx, requester, ident, code); err != nil {
		return res, err
	}
	res.Delivered = true
	log.Info("verification code sent")
	return res, nil
}

// Resend vuelve a enviar el código pendiente del requester.
func (s *Service) Resend(ctx context.Context, requester string) (BeginResult, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return BeginResult{}, ErrMissingRequester
	}
	if err := s.throttle(ctx, "resend:"+requester); err != nil {
		return BeginResult{}, err
	}

	repo := s.store.Verifications()
	st, err := repo.State(ctx, requester)
	if err != nil {
		return BeginResult{}, errs.Internal(err)
	}
	switch st {
	case repository.StateAuthenticated:
		return BeginResult{}, ErrAlreadyAuthenticated
	case repository.StateAbsent:
		return BeginResult{}, ErrNoPending
	}

	p, err := repo.GetPending(ctx, requester)
	if err != nil {
		if repository.IsNotFound(err) {
			return BeginResult{}, ErrNoPending
		}
		return BeginResult{}, errs.Internal(err)
	}
	ident, err := s.lookup(ctx, p.InstitutionalID)
	if err != nil {
		return BeginResult{}, err
	}
	if err := s.deliver(ctx, requester, ident, p.Code); err != nil {
		return BeginResult{Identity: ident}, err
	}
	return BeginResult{Identity: ident, Delivered: true}, nil
}

func (s *Service) rejectExisting(ctx context.Context, requester string) error {
	st, err := s.store.Verifications().State(ctx, requester)
	if err != nil {
		return errs.Internal(err)
	}
	switch st {
	case repository.StatePending:
		return ErrAlreadyPending
	case repository.StateAuthenticated:
		return ErrAlreadyAuthenticated
	}
	return nil
}

func (s *Service) throttle(ctx context.Context, key string) error {
	r, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// Limiter caído: no bloquea la verificación.
		logger.From(ctx).Warn("rate limiter unavailable", logger.Err(err))
		return nil
	}
	if !r.Allowed {
		return ErrThrottled.WithCause(fmt.Errorf("retry after %s", r.RetryAfter))
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, id string) (identity.Identity, error) {
	ident, err := s.ident.Lookup(ctx, id)
	switch {
	case err == nil:
		return ident, nil
	case errors.Is(err, identity.ErrNotFound):
		return identity.Identity{}, ErrIdentityNotFound.WithMessage("Couldn't find KTH ID '%s'", id).WithCause(err)
	case errors.Is(err, identity.ErrUnreachable):
		return identity.Identity{}, ErrIdentityUnreachable.WithCause(err)
	default:
		return identity.Identity{}, ErrIdentityUnreachable.WithCause(err)
	}
}

func (s *Service) deliver(ctx context.Context, requester string, ident identity.Identity, code string) error {
	body, err := s.cfg.Template.Render(email.CodeVars{Name: ident.DisplayName, Code: code})
	if err != nil {
		return errs.Internal(err)
	}
	err = s.mailer.Send(ctx, email.Message{
		To:      ident.Email,
		ToName:  ident.DisplayName,
		Subject: s.cfg.Subject,
		Body:    body,
	})
	if err == nil {
		return nil
	}

	diag := email.DiagnoseSMTP(err)
	logger.From(ctx).Error("verification e-mail not delivered",
		logger.Requester(requester),
		logger.InstitutionalID(ident.InstitutionalID),
		logger.MaskedEmail(ident.Email),
		logger.String("diag", diag.Code),
		logger.Err(err),
	)
	s.modlog(ctx, fmt.Sprintf("Failed to send verification e-mail to <@%s> (KTH ID %s): %s (%v)",
		requester, ident.InstitutionalID, diag.Code, err))
	return ErrDeliveryFailed.WithCause(err)
}

// ─── Complete ───

// Complete canjea code y otorga el rol según el directorio.
func (s *Service) Complete(ctx context.Context, requester, code string) (platform.Role, error) {
	requester = strings.TrimSpace(requester)
	code = strings.TrimSpace(code)
	log := logger.From(ctx).With(logger.Op("verification.complete"), logger.Requester(requester))

	if requester == "" {
		return platform.Role{}, ErrMissingRequester
	}
	if code == "" {
		return platform.Role{}, ErrMissingCode
	}

	repo := s.store.Verifications()
	st, err := repo.State(ctx, requester)
	if err != nil {
		return platform.Role{}, errs.Internal(err)
	}
	if st == repository.StateAuthenticated {
		return platform.Role{}, ErrAlreadyAuthenticated
	}

	p, err := repo.FindPending(ctx, requester, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return platform.Role{}, ErrCodeNotFound
		}
		return platform.Role{}, errs.Internal(err)
	}
	log = log.With(logger.InstitutionalID(p.InstitutionalID))

	class, role, err := s.Classify(ctx, p.InstitutionalID)
	if err != nil {
		return platform.Role{}, err
	}

	if err := s.plat.GrantRole(ctx, requester, role.ID); err != nil {
		log.Warn("role grant failed", logger.Role(role.Name), logger.Err(err))
		return platform.Role{}, ErrGrantFailed.WithCause(err)
	}

	err = repo.CompletePending(ctx, p.Code, repository.Authentication{
		Requester:       requester,
		InstitutionalID: p.InstitutionalID,
		RoleID:          role.ID,
		GrantedAt:       s.now().UTC(),
	})
	switch {
	case err == nil:
	case repository.IsNotFound(err), repository.IsConflict(err):
		// Un complete concurrente ya dejó al requester autenticado.
		return platform.Role{}, ErrAlreadyAuthenticated.WithCause(err)
	default:
		log.Error("authentication not recorded after role grant", logger.Role(role.Name), logger.Err(err))
		s.modlog(ctx, fmt.Sprintf("INCONSISTENCY: <@%s> was given role %s (KTH ID %s) but the authentication could not be recorded: %v",
			requester, role.Name, p.InstitutionalID, err))
		return role, ErrAuditWriteFailed.WithCause(err)
	}

	metrics.VerificationsCompleted.WithLabelValues(string(class)).Inc()
	audit.Log(ctx, audit.EventVerificationCompleted,
		logger.Requester(requester),
		logger.InstitutionalID(p.InstitutionalID),
		logger.Role(role.Name),
		zap.String("class", string(class)),
	)
	log.Info("verification completed", logger.Role(role.Name))
	return role, nil
}

// Classify decide la clase de institutionalID con un snapshot fresco del
// directorio y resuelve el rol correspondiente.
func (s *Service) Classify(ctx context.Context, institutionalID string) (Class, platform.Role, error) {
	snap, err := s.dir.ResolveStaffIDs(ctx)
	if err != nil {
		logger.From(ctx).Error("directory lookup failed", logger.Target("directory"), logger.Err(err))
		if errors.Is(err, directory.ErrParse) {
			return "", platform.Role{}, ErrDirectoryFormat.WithCause(err)
		}
		return "", platform.Role{}, ErrDirectoryUnavailable.WithCause(err)
	}

	class := s.cfg.InDirectory.other()
	if snap.Contains(institutionalID) {
		class = s.cfg.InDirectory
	}

	name := s.cfg.MemberRole
	if class == ClassStaff {
		name = s.cfg.StaffRole
	}
	role, err := s.plat.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, platform.ErrRoleNotFound) {
			return "", platform.Role{}, ErrRoleNotConfigured.WithCause(fmt.Errorf("role %q: %w", name, err))
		}
		return "", platform.Role{}, ErrPlatformUnavailable.WithCause(err)
	}
	return class, role, nil
}

// ─── Consultas ───

// Status retorna el estado de verificación del requester.
func (s *Service) Status(ctx context.Context, requester string) (Status, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return Status{}, ErrMissingRequester
	}
	repo := s.store.Verifications()
	st, err := repo.State(ctx, requester)
	if err != nil {
		return Status{}, errs.Internal(err)
	}

	out := Status{State: st}
	switch st {
	case repository.StateAuthenticated:
		a, err := repo.GetAuthentication(ctx, requester)
		if err != nil {
			return Status{}, errs.Internal(err)
		}
		out.InstitutionalID, out.RoleID, out.Since = a.InstitutionalID, a.RoleID, a.GrantedAt
	case repository.StatePending:
		p, err := repo.GetPending(ctx, requester)
		if err != nil {
			return Status{}, errs.Internal(err)
		}
		out.InstitutionalID, out.Since = p.InstitutionalID, p.CreatedAt
	}
	return out, nil
}

// Whois lista las autenticaciones hechas con institutionalID.
func (s *Service) Whois(ctx context.Context, institutionalID string) ([]repository.Authentication, error) {
	institutionalID = strings.TrimSpace(institutionalID)
	if institutionalID == "" {
		return nil, ErrMissingID
	}
	list, err := s.store.Verifications().ListByInstitutionalID(ctx, institutionalID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return list, nil
}

func (s *Service) modlog(ctx context.Context, msg string) {
	if err := s.plat.Post(ctx, msg); err != nil {
		logger.From(ctx).Warn("modlog post failed", logger.Err(err))
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.CodeOf(err)
}
