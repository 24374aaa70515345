package service

import (
	"context"
	"errors"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/metrics"
	"lotto-server/internal/state"
	"lotto-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Grant 一次获取锁的结果；Token 仅在 Decision.Granted() 时有效
type Grant struct {
	Decision state.Decision
	Token    string
	Record   store.LockRecord
}

// DrawLock 每个开奖窗口的互斥锁，持久化在存储层，跨进程生效
type DrawLock struct {
	store      store.LockStore
	staleAfter func() time.Duration
	now        func() time.Time
}

func NewDrawLock(s store.LockStore, staleAfter func() time.Duration, now func() time.Time) *DrawLock {
	if staleAfter == nil {
		staleAfter = func() time.Duration { return state.DefaultStaleAfter }
	}
	if now == nil {
		now = time.Now
	}
	return &DrawLock{store: s, staleAfter: staleAfter, now: now}
}

// Acquire 在一次原子读-改-写中判定并（必要时）写入 in_progress + 新令牌
func (l *DrawLock) Acquire(ctx context.Context, windowKey string) (Grant, error) {
	token := uuid.NewString()
	var decision state.Decision

	rec, err := l.store.UpdateLock(ctx, windowKey, func(cur store.LockRecord) (store.LockRecord, bool, error) {
		now := l.now().UTC()
		decision = state.Decide(cur.Snapshot(), now, l.staleAfter())
		if !decision.Granted() {
			return cur, false, nil
		}
		if _, err := state.NextState(cur.Snapshot().State, state.EvtAcquire); err != nil && cur.Found {
			return cur, false, err
		}
		next := cur
		next.State = state.StateInProgress
		next.OwnerToken = token
		next.StartedAt = now
		next.ResultID = ""
		next.Error = ""
		return next, true, nil
	})
	if err != nil {
		metrics.RecordLockDecision("error")
		return Grant{}, err
	}
	metrics.RecordLockDecision(decision.String())

	g := Grant{Decision: decision, Record: rec}
	if decision.Granted() {
		g.Token = token
	}
	if decision == state.Reclaim {
		logger.WarnCtx(ctx, "reclaimed stale draw lock",
			zap.String("window_key", windowKey), zap.String("process_id", token))
	}
	return g, nil
}

const failWriteTimeout = 5 * time.Second

// Fail 合并写入失败信息，不删除记录；令牌已失效时只记日志
func (l *DrawLock) Fail(ctx context.Context, windowKey, token string, cause error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	// 失败原因可能就是 ctx 取消，写失败状态不能跟着取消
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	err := l.store.FailLock(fctx, windowKey, token, msg)
	switch {
	case err == nil:
		metrics.RecordLockRelease(string(state.StateFailed), "ok")
	case errors.Is(err, store.ErrLockLost):
		metrics.RecordLockRelease(string(state.StateFailed), "lost")
		logger.WarnCtx(ctx, "draw lock no longer owned, failure not recorded",
			zap.String("window_key", windowKey), zap.String("process_id", token), zap.String("cause", msg))
	default:
		metrics.RecordLockRelease(string(state.StateFailed), "error")
		logger.ErrorCtx(ctx, "record draw failure failed",
			zap.String("window_key", windowKey), zap.String("process_id", token), zap.Error(err))
	}
}
