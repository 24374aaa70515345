package service

import (
	"context"
	"errors"

	"lotto-server/internal/lotto"
	"lotto-server/internal/store"
)

// MaxResultsLimit 最近结果列表上限
const MaxResultsLimit = 50

// GameStateCache 展示状态读缓存
type GameStateCache interface {
	GameState(ctx context.Context) (lotto.GameState, bool)
}

// QueryService 只读查询，供展示层使用
type QueryService struct {
	store store.Store
	cache GameStateCache
}

func NewQueryService(s store.Store, cache GameStateCache) *QueryService {
	return &QueryService{store: s, cache: cache}
}

// Result 按窗口键查询结算结果
func (q *QueryService) Result(ctx context.Context, key lotto.WindowKey) (lotto.Settlement, error) {
	res, err := q.store.FindByWindow(ctx, key.String())
	if errors.Is(err, store.ErrNotFound) {
		res, err = q.store.FindInRange(ctx, key.Start(), key.End())
	}
	if errors.Is(err, store.ErrNotFound) {
		return lotto.Settlement{}, ErrNotFound
	}
	return res, err
}

// Latest 最近 limit 条结果，limit 被限制在 [1, MaxResultsLimit]
func (q *QueryService) Latest(ctx context.Context, limit int) ([]lotto.Settlement, error) {
	if limit <= 0 || limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}
	return q.store.Latest(ctx, limit)
}

// GameState 优先读缓存
func (q *QueryService) GameState(ctx context.Context) (lotto.GameState, error) {
	if q.cache != nil {
		if gs, ok := q.cache.GameState(ctx); ok {
			return gs, nil
		}
	}
	gs, err := q.store.GetGameState(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return lotto.GameState{}, ErrNotFound
	}
	return gs, err
}
