// Package directory resuelve el conjunto de identificadores de staff a partir
// de la página pública del directorio institucional.
//
// Es el colaborador más frágil del motor (scraping de HTML de terceros): toda la
// regla de extracción vive acá, detrás de Resolver.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dropDatabas3/rolegate/internal/metrics"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

// DefaultSelector apunta a los links de e-mail de la tabla del directorio.
const DefaultSelector = "div > table > tbody > tr > td.email > a"

var (
	// ErrUnavailable: error de red o status no 2xx.
	ErrUnavailable = errors.New("directory unavailable")
	// ErrParse: el HTML no tiene la estructura esperada.
	ErrParse = errors.New("directory format changed")
)

// Snapshot es el conjunto de ids de staff de una consulta.
type Snapshot map[string]struct{}

// NewSnapshot construye un Snapshot con ids.
func NewSnapshot(ids ...string) Snapshot {
	s := make(Snapshot, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains indica si id está en el directorio.
func (s Snapshot) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len retorna la cantidad de ids.
func (s Snapshot) Len() int { return len(s) }

// Resolver obtiene el directorio en vivo. Cada llamada vuelve a pedir la
// página; no hay cache.
type Resolver struct {
	url      string
	selector string
	client   *http.Client
}

// Option configura un Resolver.
type Option func(*Resolver)

// WithSelector reemplaza DefaultSelector.
func WithSelector(sel string) Option {
	return func(r *Resolver) {
		if sel != "" {
			r.selector = sel
		}
	}
}

// WithHTTPClient usa c en lugar del cliente por defecto.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// New crea un Resolver para url. timeout se aplica al cliente por defecto.
func New(url string, timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Resolver{
		url:      url,
		selector: DefaultSelector,
		client:   &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ResolveStaffIDs descarga el directorio y extrae, de cada anchor que matchea
// el selector, el texto previo al primer '@'.
func (r *Resolver) ResolveStaffIDs(ctx context.Context) (snap Snapshot, err error) {
	log := logger.From(ctx).With(logger.Component("directory"), logger.Target(r.url))
	start := time.Now()
	defer func() { metrics.ObserveExternal("directory", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.Warn("directory fetch failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Warn("directory returned non-success status", logger.Status(resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	sel := doc.Find(r.selector)
	if sel.Length() == 0 {
		log.Error("directory selector matched nothing", logger.String("selector", r.selector))
		return nil, fmt.Errorf("%w: selector %q matched nothing", ErrParse, r.selector)
	}

	snap = make(Snapshot, sel.Length())
	sel.Each(func(_ int, a *goquery.Selection) {
		text := a.Text()
		if i := strings.IndexByte(text, '@'); i >= 0 {
			text = text[:i]
		}
		if id := strings.TrimSpace(text); id != "" {
			snap[id] = struct{}{}
		}
	})

	log.Debug("directory resolved", logger.Count(snap.Len()))
	return snap, nil
}
