package rate

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisLimiter: fixed window sencillo (INCR + EXPIRE). Compartido entre réplicas.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

var _ Limiter = (*RedisLimiter)(nil)

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey, _ := windowKey(l.Prefix, key, time.Now(), l.Window)

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX: solo el primer hit de la ventana fija el TTL
	pipe.ExpireNX(ctx, redisKey, l.Window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	retry := ttl.Val()
	if retry < 0 {
		retry = l.Window
	}
	return result(incr.Val(), l.Max, retry), nil
}
