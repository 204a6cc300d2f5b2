// Package discord implementa platform.Platform sobre la API REST de Discord
// (bwmarrin/discordgo). No abre el gateway websocket: los comandos llegan por
// internal/http y acá solo se hacen llamadas REST.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"github.com/dropDatabas3/rolegate/internal/platform"
	gocache "github.com/patrickmn/go-cache"
)

// restAPI es el subconjunto de *discordgo.Session que se usa.
type restAPI interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

const rolesKey = "guild_roles"

// Config de la conexión.
type Config struct {
	Token           string
	GuildID         string
	ModlogChannelID string
	RoleCacheTTL    time.Duration // default 1m
}

// Client implementa platform.Platform para un guild.
type Client struct {
	api     restAPI
	guildID string
	modlog  string
	roles   *gocache.Cache
}

var _ platform.Platform = (*Client)(nil)

// New crea un Client autenticado como bot.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.GuildID == "" {
		return nil, fmt.Errorf("discord: token and guild id are required")
	}
	token := cfg.Token
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	return newClient(s, cfg), nil
}

func newClient(api restAPI, cfg Config) *Client {
	ttl := cfg.RoleCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		api:     api,
		guildID: cfg.GuildID,
		modlog:  cfg.ModlogChannelID,
		roles:   gocache.New(ttl, 2*ttl),
	}
}

func observe(start time.Time, err error) { metrics.ObserveExternal("platform", start, err) }

func (c *Client) GrantRole(ctx context.Context, user, roleID string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()
	if err := c.api.GuildMemberRoleAdd(c.guildID, user, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: add role %s to %s: %w", roleID, user, err)
	}
	return nil
}

func (c *Client) RevokeRole(ctx context.Context, user, roleID string) (err error) {
	start := time.Now()
	defer func() { observe(start, err) }()
	if err := c.api.GuildMemberRoleRemove(c.guildID, user, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: remove role %s from %s: %w", roleID, user, err)
	}
	return nil
}

// guildRoles retorna los roles del guild, cacheados por RoleCacheTTL.
func (c *Client) guildRoles(ctx context.Context) ([]*discordgo.Role, error) {
	if v, ok := c.roles.Get(rolesKey); ok {
		return v.([]*discordgo.Role), nil
	}
	start := time.Now()
	roles, err := c.api.GuildRoles(c.guildID, discordgo.WithContext(ctx))
	observe(start, err)
	if err != nil {
		return nil, fmt.Errorf("discord: list roles: %w", err)
	}
	c.roles.SetDefault(rolesKey, roles)
	return roles, nil
}

func (c *Client) FindByName(ctx context.Context, name string) (platform.Role, error) {
	roles, err := c.guildRoles(ctx)
	if err != nil {
		return platform.Role{}, err
	}
	for _, r := range roles {
		if r.Name == name {
			return platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return platform.Role{}, platform.ErrRoleNotFound
}

func (c *Client) FindByID(ctx context.Context, id string) (platform.Role, error) {
	roles, err := c.guildRoles(ctx)
	if err != nil {
		return platform.Role{}, err
	}
	for _, r := range roles {
		if r.ID == id {
			return platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return platform.Role{}, platform.ErrRoleNotFound
}

func (c *Client) RolesOf(ctx context.Context, user string) (roles []string, err error) {
	start := time.Now()
	defer func() { observe(start, err) }()
	m, err := c.api.GuildMember(c.guildID, user, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: get member %s: %w", user, err)
	}
	return m.Roles, nil
}

// Post escribe en el canal de moderación. Sin canal configurado solo loguea.
func (c *Client) Post(ctx context.Context, msg string) (err error) {
	if c.modlog == "" {
		logger.From(ctx).Warn("modlog channel not configured", logger.String("msg", msg))
		return nil
	}
	start := time.Now()
	defer func() { observe(start, err) }()
	if _, err := c.api.ChannelMessageSend(c.modlog, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: post modlog: %w", err)
	}
	return nil
}
