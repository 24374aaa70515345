package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/metrics"
	"lotto-server/internal/state"
	"lotto-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 票范围
const (
	ScopeAll                 = "all"
	ScopeSinceLastSettlement = "since_last_settlement"
)

// Outcome 一次开奖调用的结局
type Outcome string

const (
	OutcomeSettled        Outcome = "settled"
	OutcomeAlreadySettled Outcome = "already_settled"
	OutcomeBusy           Outcome = "busy"
)

// DrawOutcome RunDraw 的返回；Result 仅在本次调用完成结算时非空
type DrawOutcome struct {
	Outcome     Outcome
	WindowKey   string
	ResultID    string
	Result      *lotto.Settlement
	BonusIssued int
}

// DrawCache 开奖缓存；实现必须容忍后端不可用
type DrawCache interface {
	SettledResultID(ctx context.Context, windowKey string) (string, bool)
	MarkSettled(ctx context.Context, windowKey, resultID string)
	PublishGameState(ctx context.Context, gs lotto.GameState)
}

type noopCache struct{}

func (noopCache) SettledResultID(context.Context, string) (string, bool) { return "", false }
func (noopCache) MarkSettled(context.Context, string, string)            {}
func (noopCache) PublishGameState(context.Context, lotto.GameState)      {}

// EngineOptions 结算引擎参数
type EngineOptions struct {
	Window          time.Duration        // 开奖窗口长度，默认 1 分钟
	StaleAfter      func() time.Duration // 进行中锁过期阈值（支持热更新）
	TicketScope     string               // all | since_last_settlement
	EvalWorkers     int                  // 并行比对协程数，<=0 取 GOMAXPROCS
	AnonymousOwners []string             // 额外的匿名账户
	Now             func() time.Time
}

// Engine 开奖结算引擎
type Engine struct {
	store store.Store
	pool  *lotto.SymbolPool
	cache DrawCache
	lock  *DrawLock
	opts  EngineOptions
}

func NewEngine(s store.Store, pool *lotto.SymbolPool, cache DrawCache, opts EngineOptions) *Engine {
	if cache == nil {
		cache = noopCache{}
	}
	if opts.Window < time.Minute {
		opts.Window = lotto.DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EvalWorkers <= 0 {
		opts.EvalWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.TicketScope != ScopeSinceLastSettlement {
		opts.TicketScope = ScopeAll
	}
	return &Engine{
		store: s,
		pool:  pool,
		cache: cache,
		lock:  NewDrawLock(s, opts.StaleAfter, opts.Now),
		opts:  opts,
	}
}

// CurrentWindow 当前时刻所在窗口
func (e *Engine) CurrentWindow() lotto.WindowKey { return lotto.WindowAt(e.opts.Now(), e.opts.Window) }

// ParseWindow 解析窗口键；空串返回当前窗口
func (e *Engine) ParseWindow(s string) (lotto.WindowKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return e.CurrentWindow(), nil
	}
	w, err := lotto.ParseWindowKey(s, e.opts.Window)
	if err != nil {
		return lotto.WindowKey{}, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	return w, nil
}

// ParseTriggerWindow 解析手动开奖的窗口键；尚未开始的窗口不允许开奖
func (e *Engine) ParseTriggerWindow(s string) (lotto.WindowKey, error) {
	w, err := e.ParseWindow(s)
	if err != nil {
		return lotto.WindowKey{}, err
	}
	if w.Start().After(e.CurrentWindow().Start()) {
		return lotto.WindowKey{}, fmt.Errorf("%w: window %s has not started", ErrInvalidWindow, w)
	}
	return w, nil
}

// RunDraw 对一个窗口执行至多一次开奖。
// 重复调用返回 already_settled 与同一结果ID；并发调用中只有持锁者会写入结果。
func (e *Engine) RunDraw(ctx context.Context, key lotto.WindowKey) (DrawOutcome, error) {
	wk := key.String()
	out := DrawOutcome{WindowKey: wk}

	// 前置检查：缓存 -> 窗口键 -> 时间区间
	id, found, err := e.precheck(ctx, key)
	if err != nil {
		return out, fmt.Errorf("precheck %s: %w", wk, err)
	}
	if found {
		logger.InfoCtx(ctx, "window already settled", zap.String("window_key", wk), zap.String("result_id", id))
		out.Outcome, out.ResultID = OutcomeAlreadySettled, id
		return out, nil
	}

	// 获取开奖锁
	grant, err := e.lock.Acquire(ctx, wk)
	if err != nil {
		return out, fmt.Errorf("acquire draw lock %s: %w", wk, err)
	}
	switch grant.Decision {
	case state.Busy:
		logger.InfoCtx(ctx, "draw in progress elsewhere", zap.String("window_key", wk),
			zap.Time("started_at", grant.Record.StartedAt))
		out.Outcome = OutcomeBusy
		return out, nil
	case state.AlreadySettled:
		out.Outcome, out.ResultID = OutcomeAlreadySettled, grant.Record.ResultID
		if out.ResultID != "" {
			e.cache.MarkSettled(ctx, wk, out.ResultID)
		}
		return out, nil
	}

	token := grant.Token
	logger.InfoCtx(ctx, "draw lock acquired", zap.String("window_key", wk),
		zap.String("process_id", token), zap.String("decision", grant.Decision.String()))

	res, err := e.settle(ctx, key, token)
	if err != nil {
		logger.ErrorCtx(ctx, "draw failed", zap.String("window_key", wk), zap.String("process_id", token), zap.Error(err))
		e.lock.Fail(ctx, wk, token, err)
		return out, err
	}
	metrics.RecordLockRelease(string(state.StateCompleted), "ok")
	e.cache.MarkSettled(ctx, wk, res.ID)

	// 结果提交后再发免费票，未发布的开奖不会产生免费票
	out.BonusIssued = e.issueBonuses(ctx, res)
	out.Outcome, out.ResultID, out.Result = OutcomeSettled, res.ID, &res

	logger.InfoCtx(ctx, "draw settled",
		zap.String("window_key", wk),
		zap.String("result_id", res.ID),
		zap.String("process_id", token),
		zap.Any("winning", res.Winning),
		zap.Any("tier_sizes", res.Tiers.Sizes()),
		zap.Int("total_tickets", res.TotalTickets),
		zap.Int("skipped_tickets", res.SkippedTickets),
		zap.Int("bonus_issued", out.BonusIssued))
	return out, nil
}

func (e *Engine) precheck(ctx context.Context, key lotto.WindowKey) (string, bool, error) {
	wk := key.String()
	if id, ok := e.cache.SettledResultID(ctx, wk); ok {
		return id, true, nil
	}
	res, err := e.store.FindByWindow(ctx, wk)
	if err == nil {
		return res.ID, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}
	res, err = e.store.FindInRange(ctx, key.Start(), key.End())
	if err == nil {
		return res.ID, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}
	return "", false, nil
}

// settle 持锁后：开奖、更新展示状态、比对分桶、提交
func (e *Engine) settle(ctx context.Context, key lotto.WindowKey, token string) (lotto.Settlement, error) {
	winning := e.pool.Draw(lotto.TicketSize)
	now := e.opts.Now().UTC()

	// 展示状态尽力而为，失败不影响结算
	gs := lotto.GameState{
		WindowKey:  key.String(),
		Winning:    winning,
		NextDrawAt: key.End(),
		ProcessID:  token,
		UpdatedAt:  now,
	}
	if err := e.store.SaveGameState(ctx, gs); err != nil {
		logger.WarnCtx(ctx, "save game state failed", zap.String("window_key", key.String()), zap.Error(err))
	}
	e.cache.PublishGameState(ctx, gs)

	// 读取票
	tickets, err := e.loadTickets(ctx)
	if err != nil {
		return lotto.Settlement{}, fmt.Errorf("load tickets: %w", err)
	}

	// 并行比对，按票顺序分桶
	tiers, err := e.evaluate(ctx, tickets, winning)
	if err != nil {
		return lotto.Settlement{}, fmt.Errorf("evaluate tickets: %w", err)
	}
	lists := lotto.NewTierLists()
	skipped := 0
	for i, t := range tickets {
		if !t.WellFormed() {
			skipped++
			logger.WarnCtx(ctx, "skip malformed ticket", zap.String("ticket_id", t.ID), zap.Int("numbers", len(t.Numbers)))
			continue
		}
		lists.Add(tiers[i], t.Summary())
	}

	res := lotto.Settlement{
		ID:             uuid.NewString(),
		WindowKey:      key.String(),
		CreatedAt:      now,
		Winning:        winning,
		Tiers:          lists,
		TotalTickets:   len(tickets),
		SkippedTickets: skipped,
		ProcessID:      token,
	}

	// 写结果 + 事件 + 锁完成，同一原子操作
	if err := e.store.CommitResult(ctx, token, res); err != nil {
		return lotto.Settlement{}, fmt.Errorf("commit settlement: %w", err)
	}

	sizes := make(map[string]int, len(lotto.Tiers))
	for t, n := range lists.Sizes() {
		sizes[string(t)] = n
	}
	metrics.RecordSettlement(sizes, len(tickets)-skipped, skipped)
	return res, nil
}

func (e *Engine) loadTickets(ctx context.Context) ([]lotto.Ticket, error) {
	var after time.Time
	if e.opts.TicketScope == ScopeSinceLastSettlement {
		latest, err := e.store.Latest(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			after = latest[0].CreatedAt
		}
	}
	return e.store.ListTickets(ctx, after)
}

// evaluate 每个协程只写自己负责区间的下标，无需加锁
func (e *Engine) evaluate(ctx context.Context, tickets []lotto.Ticket, winning []lotto.Symbol) ([]lotto.Tier, error) {
	tiers := make([]lotto.Tier, len(tickets))
	if len(tickets) == 0 {
		return tiers, nil
	}
	workers := e.opts.EvalWorkers
	chunk := (len(tickets) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(tickets); start += chunk {
		start := start
		end := min(start+chunk, len(tickets))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				if tickets[i].WellFormed() {
					tiers[i] = lotto.Evaluate(tickets[i].Numbers, winning).Tier()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiers, nil
}
