package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lotto-server/common"
	"lotto-server/internal/lotto"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const TableSettlementResult = "settlement_result"

// SettlementResult 对应 settlement_result 表（window_key 唯一索引防止重复结算）
// window_key 可为 NULL：早期记录只有 created_at，按时间区间兜底查询
type SettlementResult struct {
	ID             string         `db:"id"`
	WindowKey      sql.NullString `db:"window_key"`
	WinningSymbols string         `db:"winning_symbols"` // JSON 数组
	Tiers          string         `db:"tiers"`           // JSON: first/second/third/free
	TotalTickets   int            `db:"total_tickets"`
	SkippedTickets int            `db:"skipped_tickets"`
	ProcessID      string         `db:"process_id"`
	CreatedAt      int64          `db:"created_at"`
}

var settlementFields = common.EnumFields(SettlementResult{})

// NewSettlementRow 领域结果 -> 表行
func NewSettlementRow(s lotto.Settlement) (SettlementResult, error) {
	win, err := json.Marshal(s.Winning)
	if err != nil {
		return SettlementResult{}, err
	}
	tiers, err := json.Marshal(s.Tiers)
	if err != nil {
		return SettlementResult{}, err
	}
	return SettlementResult{
		ID:             s.ID,
		WindowKey:      sql.NullString{String: s.WindowKey, Valid: s.WindowKey != ""},
		WinningSymbols: string(win),
		Tiers:          string(tiers),
		TotalTickets:   s.TotalTickets,
		SkippedTickets: s.SkippedTickets,
		ProcessID:      s.ProcessID,
		CreatedAt:      s.CreatedAt.UnixMilli(),
	}, nil
}

// Decode 严格解码；开奖号码必须为 TicketSize 个字符串
func (r SettlementResult) Decode() (lotto.Settlement, error) {
	win, err := decodeSymbols(r.WinningSymbols)
	if err != nil || len(win) != lotto.TicketSize {
		return lotto.Settlement{}, fmt.Errorf("settlement %s: malformed winning_symbols %q", r.ID, r.WinningSymbols)
	}
	tiers := lotto.NewTierLists()
	if r.Tiers != "" {
		if err := json.Unmarshal([]byte(r.Tiers), &tiers); err != nil {
			return lotto.Settlement{}, fmt.Errorf("settlement %s: malformed tiers: %w", r.ID, err)
		}
	}
	return lotto.Settlement{
		ID:             r.ID,
		WindowKey:      r.WindowKey.String,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
		Winning:        win,
		Tiers:          tiers,
		TotalTickets:   r.TotalTickets,
		SkippedTickets: r.SkippedTickets,
		ProcessID:      r.ProcessID,
	}, nil
}

// InsertSettlementResult 插入结算结果；窗口重复时返回唯一键冲突
func InsertSettlementResult(ctx context.Context, exec sqlx.ExtContext, row SettlementResult) error {
	_, err := common.InsertCtx(ctx, exec, TableSettlementResult, row)
	return err
}

// GetSettlementByWindow 按窗口键查询
func GetSettlementByWindow(ctx context.Context, q sqlx.QueryerContext, windowKey string) (*SettlementResult, error) {
	return getSettlement(ctx, q, g.C("window_key").Eq(windowKey))
}

// GetSettlementByID 按ID查询
func GetSettlementByID(ctx context.Context, q sqlx.QueryerContext, id string) (*SettlementResult, error) {
	return getSettlement(ctx, q, g.C("id").Eq(id))
}

// GetSettlementInRange 查询 [from, to) 内最早的一条无窗口键结果（早期记录兜底）
func GetSettlementInRange(ctx context.Context, q sqlx.QueryerContext, from, to int64) (*SettlementResult, error) {
	var list []SettlementResult
	err := common.SelectAllCtx(ctx, q, &list, common.QueryArg{
		Table:  TableSettlementResult,
		Fields: settlementFields,
		Ex:     []exp.Expression{g.C("window_key").IsNull(), g.C("created_at").Gte(from), g.C("created_at").Lt(to)},
		Order:  []exp.OrderedExpression{g.C("created_at").Asc()},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	return &list[0], nil
}

// ListLatestSettlements 按创建时间倒序
func ListLatestSettlements(ctx context.Context, q sqlx.QueryerContext, limit int) ([]SettlementResult, error) {
	var list []SettlementResult
	err := common.SelectAllCtx(ctx, q, &list, common.QueryArg{
		Table:  TableSettlementResult,
		Fields: settlementFields,
		Order:  []exp.OrderedExpression{g.C("created_at").Desc(), g.C("id").Desc()},
		Limit:  uint(limit),
	})
	return list, err
}

func getSettlement(ctx context.Context, q sqlx.QueryerContext, ex exp.Expression) (*SettlementResult, error) {
	var r SettlementResult
	if err := common.SelectOneExtCtx(ctx, q, &r, TableSettlementResult, settlementFields, ex); err != nil {
		return nil, err
	}
	return &r, nil
}

// IsNoRows 是否为未找到
func IsNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
