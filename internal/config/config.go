package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr         string        `yaml:"addr"`
		GatewayKey   string        `yaml:"gateway_key"`   // X-Gateway-Key de endpoints de usuario
		AdminAPIKey  string        `yaml:"admin_api_key"` // X-Admin-API-Key de endpoints de moderación
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"` // aplicar migraciones al arrancar serve
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Mail struct {
		Driver  string `yaml:"driver"` // smtp | log (log solo en dev)
		Subject string `yaml:"subject"`
	} `yaml:"mail"`

	SMTP struct {
		Host               string        `yaml:"host"`
		Port               int           `yaml:"port"`
		Username           string        `yaml:"username"`
		Password           string        `yaml:"password"`
		From               string        `yaml:"from"`
		TLS                string        `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // sólo dev
		Timeout            time.Duration `yaml:"timeout"`
	} `yaml:"smtp"`

	Directory struct {
		URL      string        `yaml:"url"`
		Selector string        `yaml:"selector"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"directory"`

	Identity struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"` // 0 desactiva el memo
	} `yaml:"identity"`

	// Nombres de los roles en la plataforma.
	Roles struct {
		Staff  string `yaml:"staff"`
		Member string `yaml:"member"`
	} `yaml:"roles"`

	Classification struct {
		// Rol que corresponde a estar en el directorio: staff | member.
		// Obligatorio, sin default.
		InDirectory string `yaml:"in_directory"`
	} `yaml:"classification"`

	Passphrase struct {
		// Si es true (default) el canje exige la ventana abierta y la frase igual a la de la ventana.
		RequireWindow *bool `yaml:"require_window"`
	} `yaml:"passphrase"`

	Rate struct {
		Kind  string `yaml:"kind"` // memory | redis
		Begin struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"begin"`
	} `yaml:"rate"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Password string `yaml:"password"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Discord struct {
		Token           string `yaml:"token"`
		GuildID         string `yaml:"guild_id"`
		ModlogChannelID string `yaml:"modlog_channel_id"`
	} `yaml:"discord"`
}

// Load lee el YAML de path (opcional: vacío = solo defaults + env), aplica
// defaults, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Mail.Driver == "" {
		c.Mail.Driver = "smtp"
	}
	if c.Mail.Subject == "" {
		c.Mail.Subject = "Discord authentication"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 15 * time.Second
	}
	if c.Directory.URL == "" {
		c.Directory.URL = "https://www.kth.se/directory/j/jh"
	}
	if c.Directory.Selector == "" {
		c.Directory.Selector = "div > table > tbody > tr > td.email > a"
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = 10 * time.Second
	}
	if c.Identity.BaseURL == "" {
		c.Identity.BaseURL = "https://hodis.datasektionen.se"
	}
	if c.Identity.Timeout == 0 {
		c.Identity.Timeout = 10 * time.Second
	}
	if c.Roles.Staff == "" {
		c.Roles.Staff = "Teacher"
	}
	if c.Roles.Member == "" {
		c.Roles.Member = "Student"
	}
	if c.Passphrase.RequireWindow == nil {
		v := true
		c.Passphrase.RequireWindow = &v
	}
	if c.Rate.Kind == "" {
		c.Rate.Kind = "memory"
	}
	if c.Rate.Begin.Limit == 0 {
		c.Rate.Begin.Limit = 3
	}
	if c.Rate.Begin.Window == 0 {
		c.Rate.Begin.Window = 10 * time.Minute
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "rolegate:rl:"
	}
}

// RequireWindow indica si el canje de passphrase exige la ventana abierta.
func (c *Config) RequireWindow() bool {
	return c.Passphrase.RequireWindow == nil || *c.Passphrase.RequireWindow
}

// IsProd indica si app.env es prod.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP / LOG
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("GATEWAY_KEY"); ok {
		c.Server.GatewayKey = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}

	// STORAGE (DATABASE_URL es el nombre histórico)
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE"); ok {
		c.Storage.Migrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}

	// MAIL / SMTP (SMTP_USER, SMTP_PASS y SMTP_SERVER son aliases)
	if v, ok := getEnvStr("MAIL_DRIVER"); ok {
		c.Mail.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	} else if v, ok := getEnvStr("SMTP_SERVER"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	} else if v, ok := getEnvStr("SMTP_USER"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	} else if v, ok := getEnvStr("SMTP_PASS"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// COLABORADORES EXTERNOS
	if v, ok := getEnvStr("DIRECTORY_URL"); ok {
		c.Directory.URL = v
	}
	if v, ok := getEnvStr("IDENTITY_BASE_URL"); ok {
		c.Identity.BaseURL = v
	}
	if v, ok := getEnvDur("IDENTITY_CACHE_TTL"); ok {
		c.Identity.CacheTTL = v
	}

	// ROLES
	if v, ok := getEnvStr("ROLE_STAFF"); ok {
		c.Roles.Staff = v
	}
	if v, ok := getEnvStr("ROLE_MEMBER"); ok {
		c.Roles.Member = v
	}
	if v, ok := getEnvStr("CLASSIFICATION_IN_DIRECTORY"); ok {
		c.Classification.InDirectory = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := getEnvBool("PASSPHRASE_REQUIRE_WINDOW"); ok {
		c.Passphrase.RequireWindow = &v
	}

	// RATE / REDIS
	if v, ok := getEnvStr("RATE_KIND"); ok {
		c.Rate.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvInt("RATE_BEGIN_LIMIT"); ok {
		c.Rate.Begin.Limit = v
	}
	if v, ok := getEnvDur("RATE_BEGIN_WINDOW"); ok {
		c.Rate.Begin.Window = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}

	// DISCORD
	if v, ok := getEnvStr("DISCORD_TOKEN"); ok {
		c.Discord.Token = v
	}
	if v, ok := getEnvStr("DISCORD_GUILD_ID"); ok {
		c.Discord.GuildID = v
	}
	if v, ok := getEnvStr("MODLOG_CHANNEL_ID"); ok {
		c.Discord.ModlogChannelID = v
	}
}

// Validate verifica los valores críticos.
func (c *Config) Validate() error {
	switch c.Classification.InDirectory {
	case "staff", "member":
	case "":
		return fmt.Errorf("config: classification.in_directory is required (staff|member)")
	default:
		return fmt.Errorf("config: classification.in_directory must be staff or member, got %q", c.Classification.InDirectory)
	}
	if strings.EqualFold(c.Roles.Staff, c.Roles.Member) {
		return fmt.Errorf("config: roles.staff and roles.member must differ")
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for driver postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	switch c.Mail.Driver {
	case "smtp":
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("config: smtp.host and smtp.from are required for mail driver smtp")
		}
	case "log":
		// Guardia dura: en prod nunca se loguean códigos.
		if c.IsProd() {
			return fmt.Errorf("config: mail driver log is not allowed in prod")
		}
	default:
		return fmt.Errorf("config: unknown mail.driver %q", c.Mail.Driver)
	}
	switch c.Rate.Kind {
	case "memory", "redis", "off":
	default:
		return fmt.Errorf("config: unknown rate.kind %q", c.Rate.Kind)
	}
	return nil
}
