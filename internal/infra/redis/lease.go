package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 仅当值匹配时删除，防止误删其他实例的租约
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lease 基于 SETNX + TTL 的租约。只用于减少多实例下的重复尝试，
// 开奖的唯一性仍由存储层的开奖锁保证。
type Lease struct {
	c     *goredis.Client
	key   string
	token string
	ttl   time.Duration
}

func NewLease(c *goredis.Client, key, token string, ttl time.Duration) *Lease {
	return &Lease{c: c, key: key, token: token, ttl: ttl}
}

// TryAcquire 获取租约；未配置 Redis 时总是成功
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	if l == nil || l.c == nil {
		return true, nil
	}
	return l.c.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Release 原子释放；返回 false 表示租约已过期或被他人持有
func (l *Lease) Release(ctx context.Context) (bool, error) {
	if l == nil || l.c == nil {
		return true, nil
	}
	n, err := releaseScript.Run(ctx, l.c, []string{l.key}, l.token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
