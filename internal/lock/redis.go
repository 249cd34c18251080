package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 只删除自己持有的锁，避免过期后误删别人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions Redis 锁参数
type RedisOptions struct {
	Prefix        string        // key 前缀，默认 "schoolquest:lock:"
	TTL           time.Duration // 锁自动过期时间，默认 10s
	RetryInterval time.Duration // 抢锁失败后的重试间隔，默认 20ms
	WaitTimeout   time.Duration // 最长等待时间，默认 5s
}

// Redis 基于 SET NX PX 的跨进程锁
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
}

func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "schoolquest:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 20 * time.Millisecond
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 5 * time.Second
	}
	return &Redis{client: client, opts: opts}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.opts.Prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.opts.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.opts.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("获取 Redis 锁失败: %w", err)
		}
		if ok {
			return r.unlocker(fullKey, token), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}
}

func (r *Redis) unlocker(fullKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// 调用方的 ctx 可能已取消，释放锁用独立的短超时
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
				slog.Warn("释放 Redis 锁失败", "key", fullKey, "error", err)
			}
		})
	}
}
