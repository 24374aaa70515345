package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 全局 Redis 客户端（可选初始化）
var rdb *goredis.Client

// Options Redis 连接参数
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Init 根据配置初始化 Redis 客户端；addr 为空则跳过，业务侧按缓存缺失处理。
func Init(o Options) {
	if o.Addr == "" {
		return
	}
	rdb = goredis.NewClient(&goredis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		PoolSize:     o.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Client 返回 Redis 客户端实例（可能为 nil）。
func Client() *goredis.Client { return rdb }

// Close 关闭连接
func Close() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

// Ping 在给定超时时间内探测 Redis 连接是否可用。
func Ping(ctx context.Context, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(c).Err()
}
