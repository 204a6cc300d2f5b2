// Package rate limita begin/resend por requester con una ventana fija.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Noop permite todo (rate.kind: off).
type Noop struct{}

func (Noop) Allow(context.Context, string) (Result, error) { return Result{Allowed: true}, nil }

// windowKey arma la clave de la ventana que contiene now.
func windowKey(prefix, key string, now time.Time, window time.Duration) (string, time.Time) {
	start := now.UTC().Truncate(window)
	return fmt.Sprintf("%s%s:%d", prefix, strings.ReplaceAll(key, " ", "_"), start.Unix()), start
}

func result(hits, max int64, retry time.Duration) Result {
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	r := Result{Allowed: hits <= max, Remaining: remaining, CurrentHits: hits}
	if !r.Allowed {
		r.RetryAfter = retry
	}
	return r
}
