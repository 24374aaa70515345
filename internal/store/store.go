// Package store 持久化边界：票、开奖锁、结算结果与展示状态。
// MySQL 实现用于生产，Memory 实现用于本地开发与测试，二者语义一致。
package store

import (
	"context"
	"errors"
	"time"

	"lotto-server/internal/lotto"
	"lotto-server/internal/state"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrLockLost        = errors.New("draw lock ownership lost")
	ErrDuplicateResult = errors.New("settlement result already exists for window")
)

// LockRecord 开奖锁的一行；Found=false 表示尚无记录
type LockRecord struct {
	WindowKey  string
	Found      bool
	State      state.State
	OwnerToken string
	StartedAt  time.Time
	ResultID   string
	Error      string
	UpdatedAt  time.Time
}

// Snapshot 转为 state.Decide 的输入
func (r LockRecord) Snapshot() state.Lock {
	if !r.Found {
		return state.Lock{}
	}
	s := r.State
	if !s.Valid() {
		s = state.StateUninitialized
	}
	return state.Lock{Found: true, State: s, StartedAt: r.StartedAt}
}

// LockFunc 在原子读-改-写中被调用；返回 write=false 时不落库
type LockFunc func(cur LockRecord) (next LockRecord, write bool, err error)

type TicketStore interface {
	// ListTickets 返回 createdAfter 之后创建的票（零值表示全部），numbers 非法的票 Numbers 为空
	ListTickets(ctx context.Context, createdAfter time.Time) ([]lotto.Ticket, error)
	InsertTicket(ctx context.Context, t lotto.Ticket) error
	DeleteTicketsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	CountTicketsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type LockStore interface {
	GetLock(ctx context.Context, windowKey string) (LockRecord, error)
	UpdateLock(ctx context.Context, windowKey string, fn LockFunc) (LockRecord, error)
	// FailLock 持有者合并写入 failed + error；令牌不匹配或已不在进行中返回 ErrLockLost
	FailLock(ctx context.Context, windowKey, token, msg string) error
}

type ResultStore interface {
	FindByWindow(ctx context.Context, windowKey string) (lotto.Settlement, error)
	// FindInRange 只匹配没有窗口键的早期记录
	FindInRange(ctx context.Context, from, to time.Time) (lotto.Settlement, error)
	FindByID(ctx context.Context, id string) (lotto.Settlement, error)
	Latest(ctx context.Context, limit int) ([]lotto.Settlement, error)
	// CommitResult 原子地：校验锁持有者、写结果、写 draw_settled 事件、锁置为 completed
	CommitResult(ctx context.Context, token string, res lotto.Settlement) error
}

type GameStateStore interface {
	SaveGameState(ctx context.Context, gs lotto.GameState) error
	GetGameState(ctx context.Context) (lotto.GameState, error)
}

// Store 全部能力
type Store interface {
	TicketStore
	LockStore
	ResultStore
	GameStateStore
}
