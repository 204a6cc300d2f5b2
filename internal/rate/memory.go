package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la ventana fija por proceso, sobre go-cache.
type MemoryLimiter struct {
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		prefix: "rl:",
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

var _ Limiter = (*MemoryLimiter)(nil)

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	k, start := windowKey(l.prefix, key, now, l.window)
	_ = l.c.Add(k, int64(0), l.window) // ya existe = no-op

	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// expiró entre Add e Increment: primer hit de una ventana nueva
		l.c.Set(k, int64(1), l.window)
		hits = 1
	}
	return result(hits, l.max, start.Add(l.window).Sub(now)), nil
}
