package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SettledTTL 已结算窗口缓存时长
const SettledTTL = 2 * time.Minute

// DrawCache 开奖相关缓存；客户端为 nil 时所有操作为空操作。
// 缓存只做加速，失败只记日志，正确性由存储层保证。
type DrawCache struct {
	c *goredis.Client
}

func NewDrawCache(c *goredis.Client) *DrawCache { return &DrawCache{c: c} }

// SettledResultID 查询窗口是否已有结算结果
func (d *DrawCache) SettledResultID(ctx context.Context, windowKey string) (string, bool) {
	if d == nil || d.c == nil {
		return "", false
	}
	id, err := d.c.Get(ctx, SettledWindowKey(windowKey)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.WarnCtx(ctx, "redis get settled window failed", zap.String("window_key", windowKey), zap.Error(err))
		}
		return "", false
	}
	return id, id != ""
}

// MarkSettled 写入 窗口 -> 结果ID
func (d *DrawCache) MarkSettled(ctx context.Context, windowKey, resultID string) {
	if d == nil || d.c == nil {
		return
	}
	if err := d.c.Set(ctx, SettledWindowKey(windowKey), resultID, SettledTTL).Err(); err != nil {
		logger.WarnCtx(ctx, "redis set settled window failed", zap.String("window_key", windowKey), zap.Error(err))
	}
}

// PublishGameState 缓存展示状态并发布通知（pipeline 一次往返）
func (d *DrawCache) PublishGameState(ctx context.Context, gs lotto.GameState) {
	if d == nil || d.c == nil {
		return
	}
	b, err := json.Marshal(gs)
	if err != nil {
		return
	}
	_, err = d.c.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, KeyGameState, b, 0)
		p.Publish(ctx, ChannelGameState, b)
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "redis publish game state failed", zap.String("window_key", gs.WindowKey), zap.Error(err))
	}
}

// GameState 读取缓存的展示状态
func (d *DrawCache) GameState(ctx context.Context) (lotto.GameState, bool) {
	if d == nil || d.c == nil {
		return lotto.GameState{}, false
	}
	b, err := d.c.Get(ctx, KeyGameState).Bytes()
	if err != nil {
		return lotto.GameState{}, false
	}
	var gs lotto.GameState
	if json.Unmarshal(b, &gs) != nil {
		return lotto.GameState{}, false
	}
	return gs, true
}
