package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/model"
	"lotto-server/internal/state"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// MySQL 基于 sqlx 的实现，锁与结果提交均使用 SELECT ... FOR UPDATE 事务
type MySQL struct {
	db *sqlx.DB
}

func NewMySQL(db *sqlx.DB) *MySQL { return &MySQL{db: db} }

// DB 暴露底层句柄（outbox 调度器复用）
func (s *MySQL) DB() *sqlx.DB { return s.db }

func (s *MySQL) ListTickets(ctx context.Context, createdAfter time.Time) ([]lotto.Ticket, error) {
	var after int64
	if !createdAfter.IsZero() {
		after = createdAfter.UnixMilli()
	}
	rows, err := model.ListTickets(ctx, s.db, after)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	out := make([]lotto.Ticket, 0, len(rows))
	for _, r := range rows {
		t, err := r.Decode()
		if err != nil {
			logger.WarnCtx(ctx, "malformed ticket row", zap.String("ticket_id", r.ID), zap.Error(err))
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *MySQL) InsertTicket(ctx context.Context, t lotto.Ticket) error {
	row, err := model.NewTicketRow(t)
	if err != nil {
		return err
	}
	return model.InsertTicket(ctx, s.db, row)
}

func (s *MySQL) DeleteTicketsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	return model.DeleteTicketsBefore(ctx, s.db, cutoff.UnixMilli(), limit)
}

func (s *MySQL) CountTicketsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return model.CountTicketsBefore(ctx, s.db, cutoff.UnixMilli())
}

func (s *MySQL) GetLock(ctx context.Context, windowKey string) (LockRecord, error) {
	row, err := model.GetDrawLock(ctx, s.db, windowKey)
	if err != nil {
		if model.IsNoRows(err) {
			return LockRecord{WindowKey: windowKey}, nil
		}
		return LockRecord{}, err
	}
	return lockFromRow(row), nil
}

// UpdateLock 先插入占位行（排他锁），再在同一事务内 FOR UPDATE 读取、调用 fn、写回
func (s *MySQL) UpdateLock(ctx context.Context, windowKey string, fn LockFunc) (LockRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return LockRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := model.EnsureDrawLock(ctx, tx, windowKey); err != nil {
		return LockRecord{}, fmt.Errorf("ensure draw lock: %w", err)
	}
	row, err := model.GetDrawLockForUpdate(ctx, tx, windowKey)
	if err != nil {
		return LockRecord{}, fmt.Errorf("lock draw row: %w", err)
	}
	cur := lockFromRow(row)
	next, write, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if !write {
		return cur, tx.Commit()
	}
	out := lockToRow(windowKey, next)
	if err := model.SaveDrawLock(ctx, tx, &out); err != nil {
		return cur, fmt.Errorf("save draw lock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return cur, err
	}
	return lockFromRow(&out), nil
}

func (s *MySQL) FailLock(ctx context.Context, windowKey, token, msg string) error {
	ok, err := model.FailDrawLock(ctx, s.db, windowKey, token, msg)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockLost
	}
	return nil
}

func (s *MySQL) FindByWindow(ctx context.Context, windowKey string) (lotto.Settlement, error) {
	return decodeSettlement(model.GetSettlementByWindow(ctx, s.db, windowKey))
}

func (s *MySQL) FindInRange(ctx context.Context, from, to time.Time) (lotto.Settlement, error) {
	return decodeSettlement(model.GetSettlementInRange(ctx, s.db, from.UnixMilli(), to.UnixMilli()))
}

func (s *MySQL) FindByID(ctx context.Context, id string) (lotto.Settlement, error) {
	return decodeSettlement(model.GetSettlementByID(ctx, s.db, id))
}

func (s *MySQL) Latest(ctx context.Context, limit int) ([]lotto.Settlement, error) {
	rows, err := model.ListLatestSettlements(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	out := make([]lotto.Settlement, 0, len(rows))
	for _, r := range rows {
		res, err := r.Decode()
		if err != nil {
			logger.Warn("skip malformed settlement row", zap.String("result_id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// CommitResult 幂等性保护：锁行 FOR UPDATE 校验持有者 + window_key 唯一索引
func (s *MySQL) CommitResult(ctx context.Context, token string, res lotto.Settlement) error {
	row, err := model.NewSettlementRow(res)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	lock, err := model.GetDrawLockForUpdate(ctx, tx, res.WindowKey)
	if err != nil {
		if model.IsNoRows(err) {
			return ErrLockLost
		}
		return err
	}
	if lock.OwnerToken != token || state.State(lock.State) != state.StateInProgress {
		return ErrLockLost
	}

	if err := model.InsertSettlementResult(ctx, tx, row); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateResult
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	if err := model.CreateOutbox(ctx, tx, model.TopicDrawSettled, res.WindowKey, settledEvent(res)); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}

	lock.State = string(state.StateCompleted)
	lock.ResultID = res.ID
	lock.Error = ""
	if err := model.SaveDrawLock(ctx, tx, lock); err != nil {
		return fmt.Errorf("complete draw lock: %w", err)
	}
	return tx.Commit()
}

func (s *MySQL) SaveGameState(ctx context.Context, gs lotto.GameState) error {
	return model.UpsertGameState(ctx, s.db, gs)
}

func (s *MySQL) GetGameState(ctx context.Context) (lotto.GameState, error) {
	gs, err := model.GetGameState(ctx, s.db)
	if model.IsNoRows(err) {
		return lotto.GameState{}, ErrNotFound
	}
	return gs, err
}

func decodeSettlement(row *model.SettlementResult, err error) (lotto.Settlement, error) {
	if err != nil {
		if model.IsNoRows(err) {
			return lotto.Settlement{}, ErrNotFound
		}
		return lotto.Settlement{}, err
	}
	return row.Decode()
}

func lockFromRow(row *model.DrawLock) LockRecord {
	snap := row.Snapshot()
	return LockRecord{
		WindowKey:  row.WindowKey,
		Found:      true,
		State:      snap.State,
		OwnerToken: row.OwnerToken,
		StartedAt:  snap.StartedAt,
		ResultID:   row.ResultID,
		Error:      row.Error,
		UpdatedAt:  time.UnixMilli(row.UpdatedAt).UTC(),
	}
}

func lockToRow(windowKey string, r LockRecord) model.DrawLock {
	var started int64
	if !r.StartedAt.IsZero() {
		started = r.StartedAt.UnixMilli()
	}
	return model.DrawLock{
		WindowKey:  windowKey,
		State:      string(r.State),
		OwnerToken: r.OwnerToken,
		StartedAt:  started,
		ResultID:   r.ResultID,
		Error:      r.Error,
	}
}

// isDuplicateKey MySQL 1062: Duplicate entry
func isDuplicateKey(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// ---- outbox ----

func (s *MySQL) ListOutboxPending(ctx context.Context, limit int) ([]model.Outbox, error) {
	return model.ListOutboxPending(ctx, s.db, limit)
}

func (s *MySQL) MarkOutboxSent(ctx context.Context, id int64) error {
	return model.MarkOutboxSent(ctx, s.db, id)
}

func (s *MySQL) MarkOutboxFailed(ctx context.Context, id int64, lastError string) error {
	return model.MarkOutboxFailed(ctx, s.db, id, lastError)
}
