package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
)

// 仅当令牌匹配时删除，避免释放别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions Redis锁配置
type RedisOptions struct {
	Prefix string
	TTL    time.Duration
	Retry  time.Duration
}

// RedisLocker 多实例部署时使用的 Redis 锁
type RedisLocker struct {
	rdb  redis.UniversalClient
	opts RedisOptions
}

// NewRedisLocker 创建 Redis 锁
func NewRedisLocker(rdb redis.UniversalClient, opts RedisOptions) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "darts:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 20 * time.Millisecond
	}
	return &RedisLocker{rdb: rdb, opts: opts}
}

// Lock 轮询 SETNX 直到成功或 ctx 结束
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.opts.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.opts.Retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.opts.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, apperrors.Wrap(err, apperrors.ErrGameLocked, "redis")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrGameLocked, key)
		case <-ticker.C:
		}
	}

	return func() {
		// 调用方的 ctx 可能已取消，释放使用独立的短超时
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		releaseScript.Run(rctx, l.rdb, []string{fullKey}, token)
	}, nil
}
