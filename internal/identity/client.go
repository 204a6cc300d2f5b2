// Package identity valida un id institucional contra el servicio de lookup
// remoto y obtiene el e-mail y el nombre de la persona.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrUnreachable: fallo de transporte o 5xx.
	ErrUnreachable = errors.New("identity service unreachable")
	// ErrNotFound: la respuesta no tiene la forma esperada (id inexistente).
	ErrNotFound = errors.New("identity not found")
)

// Identity es la identidad institucional resuelta.
type Identity struct {
	InstitutionalID string
	Email           string
	DisplayName     string
}

type wireUser struct {
	Mail        string `json:"mail"`
	DisplayName string `json:"displayName"`
}

// Client consulta GET {base}/uid/{id}. Sin reintentos.
type Client struct {
	base   string
	http   *http.Client
	memo   *cache.Cache // nil = sin memo
	memoTT time.Duration
}

// New crea un Client. cacheTTL <= 0 desactiva el memo.
func New(baseURL string, timeout, cacheTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
	if cacheTTL > 0 {
		c.memo = cache.New(cacheTTL, 2*cacheTTL)
		c.memoTT = cacheTTL
	}
	return c
}

// WithHTTPClient reemplaza el cliente HTTP (tests).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Lookup resuelve id. Solo los resultados exitosos se memorizan.
func (c *Client) Lookup(ctx context.Context, id string) (Identity, error) {
	if c.memo != nil {
		if v, ok := c.memo.Get(id); ok {
			return v.(Identity), nil
		}
	}
	ident, err := c.fetch(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if c.memo != nil {
		c.memo.Set(id, ident, c.memoTT)
	}
	return ident, nil
}

func (c *Client) fetch(ctx context.Context, id string) (ident Identity, err error) {
	log := logger.From(ctx).With(logger.Component("identity"), logger.InstitutionalID(id))
	start := time.Now()
	defer func() { metrics.ObserveExternal("identity", start, err) }()

	endpoint := c.base + "/uid/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("identity lookup failed", logger.Err(err))
		return Identity{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("identity service error", logger.Status(resp.StatusCode))
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Identity{}, fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	}

	var u wireUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		// El detalle se loguea; al usuario solo le llega "no encontrado".
		log.Info("identity response not decodable", logger.Err(err))
		return Identity{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if strings.TrimSpace(u.Mail) == "" {
		return Identity{}, fmt.Errorf("%w: empty mail", ErrNotFound)
	}

	return Identity{
		InstitutionalID: id,
		Email:           strings.TrimSpace(u.Mail),
		DisplayName:     strings.TrimSpace(u.DisplayName),
	}, nil
}
