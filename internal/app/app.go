// Package app arma el grafo de dependencias de rolegate a partir de la
// configuración: store, colaboradores externos, servicios y router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/rolegate/internal/config"
	"github.com/dropDatabas3/rolegate/internal/directory"
	"github.com/dropDatabas3/rolegate/internal/domain/repository"
	"github.com/dropDatabas3/rolegate/internal/email"
	rgHTTP "github.com/dropDatabas3/rolegate/internal/http"
	mw "github.com/dropDatabas3/rolegate/internal/http/middlewares"
	"github.com/dropDatabas3/rolegate/internal/identity"
	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"github.com/dropDatabas3/rolegate/internal/passphrase"
	"github.com/dropDatabas3/rolegate/internal/platform"
	"github.com/dropDatabas3/rolegate/internal/platform/discord"
	"github.com/dropDatabas3/rolegate/internal/rate"
	"github.com/dropDatabas3/rolegate/internal/store/memory"
	"github.com/dropDatabas3/rolegate/internal/store/pg"
	"github.com/dropDatabas3/rolegate/internal/verification"
	migrations "github.com/dropDatabas3/rolegate/migrations/postgres"
)

// Container agrupa todo lo construido por Build.
type Container struct {
	Config       *config.Config
	Store        repository.Store
	Platform     platform.Platform
	Verification *verification.Service
	Registrar    *passphrase.Registrar
	Handler      http.Handler

	closers []func()
}

// Close libera recursos en orden inverso a su creación.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Options ajusta Build. Los campos nil usan la implementación real.
type Options struct {
	// Platform reemplaza al cliente de Discord (tests, herramientas locales).
	Platform platform.Platform
	// Registry es donde se registran las métricas. nil = prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Gatherer sirve /metrics. nil = prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Build construye el contenedor completo. Ante error libera lo ya creado.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *Container, err error) {
	c := &Container{Config: cfg}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()
	log := logger.From(ctx).Named("app")

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}
	if err := mw.RegisterHTTPMetrics(reg); err != nil {
		return nil, fmt.Errorf("app: http metrics: %w", err)
	}

	// ─── Store ───
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Store = store
	c.closers = append(c.closers, store.Close)

	// ─── Plataforma ───
	plat := opts.Platform
	if plat == nil {
		dc, err := discord.New(discord.Config{
			Token:           cfg.Discord.Token,
			GuildID:         cfg.Discord.GuildID,
			ModlogChannelID: cfg.Discord.ModlogChannelID,
		})
		if err != nil {
			return nil, err
		}
		plat = dc
	}
	c.Platform = plat

	// ─── Colaboradores externos ───
	mailer, err := NewMailer(cfg)
	if err != nil {
		return nil, err
	}
	limiter, closeLimiter, err := NewLimiter(cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeLimiter)

	dirOpts := []directory.Option{}
	if cfg.Directory.Selector != "" {
		dirOpts = append(dirOpts, directory.WithSelector(cfg.Directory.Selector))
	}
	dir := directory.New(cfg.Directory.URL, cfg.Directory.Timeout, dirOpts...)
	ident := identity.New(cfg.Identity.BaseURL, cfg.Identity.Timeout, cfg.Identity.CacheTTL)

	// ─── Servicios ───
	class, err := verification.ParseClass(cfg.Classification.InDirectory)
	if err != nil {
		return nil, err
	}
	tmpl, err := email.ParseCodeTemplate("")
	if err != nil {
		return nil, err
	}
	svc, err := verification.New(verification.Config{
		StaffRole:   cfg.Roles.Staff,
		MemberRole:  cfg.Roles.Member,
		InDirectory: class,
		Subject:     cfg.Mail.Subject,
		Template:    tmpl,
	}, verification.Deps{
		Store:     store,
		Directory: dir,
		Identity:  ident,
		Mailer:    mailer,
		Platform:  plat,
		Limiter:   limiter,
	})
	if err != nil {
		return nil, err
	}
	c.Verification = svc
	c.Registrar = passphrase.NewRegistrar(
		passphrase.Config{RequireWindow: cfg.RequireWindow()},
		passphrase.NewWindow(), store, plat,
	)

	// ─── HTTP ───
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Gatherer != nil {
		gatherer = opts.Gatherer
	}
	c.Handler = rgHTTP.NewRouter(rgHTTP.Deps{
		Verification: svc,
		Passphrase:   c.Registrar,
		Store:        store,
		GatewayKey:   cfg.Server.GatewayKey,
		AdminAPIKey:  cfg.Server.AdminAPIKey,
		Metrics:      promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	})

	log.Info("container ready",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("mail", cfg.Mail.Driver),
		logger.String("rate", cfg.Rate.Kind),
		logger.String("in_directory", string(class)),
		logger.Bool("require_window", cfg.RequireWindow()),
	)
	return c, nil
}

// OpenStore abre el Persistent Store según storage.driver. Con
// storage.migrate aplica las migraciones pendientes antes de devolverlo.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		s, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Migrate {
			if _, err := Migrate(ctx, s); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenPostgres abre el pool de Postgres con las opciones de storage.postgres.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*pg.Store, error) {
	var lifetime time.Duration
	if v := cfg.Storage.Postgres.ConnMaxLifetime; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("app: conn_max_lifetime: %w", err)
		}
		lifetime = d
	}
	return pg.New(ctx, cfg.Storage.DSN, pg.Options{
		MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
		MinConns:        int32(cfg.Storage.Postgres.MinConns),
		ConnMaxLifetime: lifetime,
	})
}

// Migrate aplica las migraciones embebidas y loguea el resultado.
func Migrate(ctx context.Context, s *pg.Store) (*pg.MigrationResult, error) {
	res, err := pg.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, s)
	if err != nil {
		return res, fmt.Errorf("app: migrate: %w", err)
	}
	logger.From(ctx).Named("migrate").Info("migrations done",
		logger.Count(len(res.Applied)),
		zap.Ints("applied", res.Applied),
		zap.Ints("skipped", res.Skipped),
		logger.Duration(res.Duration),
	)
	return res, nil
}

// NewMailer elige el Mailer según mail.driver.
func NewMailer(cfg *config.Config) (email.Mailer, error) {
	switch cfg.Mail.Driver {
	case "log":
		if cfg.IsProd() {
			return nil, errors.New("app: log mailer is not allowed in prod")
		}
		return &email.LogMailer{}, nil
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
			Timeout:            cfg.SMTP.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("app: unknown mail driver %q", cfg.Mail.Driver)
	}
}

// NewLimiter elige el limitador de begin según rate.kind. La función
// devuelta cierra el cliente redis si lo hubo.
func NewLimiter(cfg *config.Config) (rate.Limiter, func(), error) {
	limit, window := cfg.Rate.Begin.Limit, cfg.Rate.Begin.Window
	switch cfg.Rate.Kind {
	case "off":
		return rate.Noop{}, func() {}, nil
	case "memory":
		return rate.NewMemoryLimiter(limit, window), func() {}, nil
	case "redis":
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		return rate.NewRedisLimiter(client, cfg.Redis.Prefix, limit, window), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown rate kind %q", cfg.Rate.Kind)
	}
}
