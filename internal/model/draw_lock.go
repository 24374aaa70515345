package model

import (
	"context"
	"time"

	"lotto-server/common"
	"lotto-server/internal/state"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const TableDrawLock = "draw_lock"

// DrawLock 对应 draw_lock 表（每个开奖窗口一行，只做合并更新，不删除）
// state: uninitialized|in_progress|completed|failed
type DrawLock struct {
	WindowKey  string `db:"window_key"`
	State      string `db:"state"`
	OwnerToken string `db:"owner_token"`
	StartedAt  int64  `db:"started_at"` // 毫秒，0=未开始
	ResultID   string `db:"result_id"`
	Error      string `db:"error"`
	UpdatedAt  int64  `db:"updated_at"`
}

var drawLockFields = common.EnumFields(DrawLock{})

// Snapshot 供 state.Decide 使用；未知状态按 uninitialized 处理
func (l DrawLock) Snapshot() state.Lock {
	s := state.State(l.State)
	if !s.Valid() {
		s = state.StateUninitialized
	}
	var started time.Time
	if l.StartedAt > 0 {
		started = time.UnixMilli(l.StartedAt).UTC()
	}
	return state.Lock{Found: true, State: s, StartedAt: started}
}

// EnsureDrawLock 插入占位行，行已存在时空更新。
// 两种情况都对该行加排他锁；INSERT IGNORE 只加共享锁，并发时升级 FOR UPDATE 会死锁
func EnsureDrawLock(ctx context.Context, exec sqlx.ExtContext, windowKey string) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO draw_lock (window_key, state, owner_token, started_at, result_id, error, updated_at) VALUES (?, ?, '', 0, '', '', ?) ON DUPLICATE KEY UPDATE window_key = window_key"
	_, err := exec.ExecContext(ctx, sqlStr, windowKey, string(state.StateUninitialized), now)
	return err
}

// GetDrawLockForUpdate 在事务中按窗口键加锁读取
func GetDrawLockForUpdate(ctx context.Context, tx *sqlx.Tx, windowKey string) (*DrawLock, error) {
	var l DrawLock
	if err := common.SelectOneTxCtx(ctx, tx, &l, TableDrawLock, drawLockFields, g.C("window_key").Eq(windowKey), true); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetDrawLock 不加锁读取
func GetDrawLock(ctx context.Context, q sqlx.QueryerContext, windowKey string) (*DrawLock, error) {
	var l DrawLock
	if err := common.SelectOneExtCtx(ctx, q, &l, TableDrawLock, drawLockFields, g.C("window_key").Eq(windowKey)); err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveDrawLock 覆盖写一行（调用方已持有行锁）
func SaveDrawLock(ctx context.Context, exec sqlx.ExtContext, l *DrawLock) error {
	l.UpdatedAt = time.Now().UnixMilli()
	_, err := common.UpdateCtx(ctx, exec, TableDrawLock, g.Record{
		"state":       l.State,
		"owner_token": l.OwnerToken,
		"started_at":  l.StartedAt,
		"result_id":   l.ResultID,
		"error":       l.Error,
		"updated_at":  l.UpdatedAt,
	}, g.C("window_key").Eq(l.WindowKey))
	return err
}

// FailDrawLock 合并更新为 failed：仅当 owner_token 匹配且仍为 in_progress，started_at 保持不变。
// 返回是否命中。
func FailDrawLock(ctx context.Context, exec sqlx.ExtContext, windowKey, token, msg string) (bool, error) {
	res, err := common.UpdateCtx(ctx, exec, TableDrawLock, g.Record{
		"state":      string(state.StateFailed),
		"error":      msg,
		"updated_at": time.Now().UnixMilli(),
	}, g.C("window_key").Eq(windowKey), g.C("owner_token").Eq(token), g.C("state").Eq(string(state.StateInProgress)))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
