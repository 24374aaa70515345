package model

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lotto-server/common"
	"lotto-server/internal/lotto"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const TableTickets = "tickets"

// ErrMalformedNumbers numbers 列不是字符串数组
var ErrMalformedNumbers = errors.New("ticket numbers column is not a string array")

// Ticket 对应 tickets 表
// numbers: JSON 字符串数组；created_at: 毫秒时间戳
type Ticket struct {
	ID        string `db:"id"`
	Numbers   string `db:"numbers"`
	OwnerKey  string `db:"owner_key"`
	IsBonus   int8   `db:"is_bonus"` // 0=普通 1=免费票
	WonFrom   string `db:"won_from"` // 免费票来源票ID
	CreatedAt int64  `db:"created_at"`
}

var ticketFields = common.EnumFields(Ticket{})

// NewTicketRow 领域票 -> 表行
func NewTicketRow(t lotto.Ticket) (Ticket, error) {
	b, err := json.Marshal(t.Numbers)
	if err != nil {
		return Ticket{}, err
	}
	row := Ticket{
		ID:        t.ID,
		Numbers:   string(b),
		OwnerKey:  t.OwnerKey,
		WonFrom:   t.WonFrom,
		CreatedAt: t.CreatedAt.UnixMilli(),
	}
	if t.IsBonus {
		row.IsBonus = 1
	}
	return row, nil
}

// Decode 严格解码。numbers 非法时仍返回其余字段（Numbers 为空）与 ErrMalformedNumbers，
// 由调用方计入跳过数。
func (r Ticket) Decode() (lotto.Ticket, error) {
	t := lotto.Ticket{
		ID:        r.ID,
		OwnerKey:  r.OwnerKey,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		IsBonus:   r.IsBonus == 1,
		WonFrom:   r.WonFrom,
	}
	nums, err := decodeSymbols(r.Numbers)
	if err != nil {
		return t, err
	}
	t.Numbers = nums
	return t, nil
}

// decodeSymbols 只接受 JSON 字符串数组；null、数字、对象一律视为非法
func decodeSymbols(raw string) ([]lotto.Symbol, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return nil, ErrMalformedNumbers
	}
	out := make([]lotto.Symbol, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err != nil {
			return nil, ErrMalformedNumbers
		}
		out = append(out, lotto.Symbol(s))
	}
	return out, nil
}

// InsertTicket 插入一张票
func InsertTicket(ctx context.Context, exec sqlx.ExtContext, row Ticket) error {
	_, err := common.InsertCtx(ctx, exec, TableTickets, row)
	return err
}

// ListTickets 按创建时间升序读取票；createdAfter<=0 表示全部
func ListTickets(ctx context.Context, q sqlx.QueryerContext, createdAfter int64) ([]Ticket, error) {
	arg := common.QueryArg{
		Table:  TableTickets,
		Fields: ticketFields,
		Order:  []exp.OrderedExpression{g.C("created_at").Asc(), g.C("id").Asc()},
	}
	if createdAfter > 0 {
		arg.Ex = append(arg.Ex, g.C("created_at").Gt(createdAfter))
	}
	var list []Ticket
	if err := common.SelectAllCtx(ctx, q, &list, arg); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteTicketsBefore 删除 created_at < cutoff 的最旧 limit 张票，返回删除数
func DeleteTicketsBefore(ctx context.Context, exec sqlx.ExtContext, cutoff int64, limit int) (int64, error) {
	res, err := common.DeleteCtx(ctx, exec, common.QueryArg{
		Table: TableTickets,
		Ex:    []exp.Expression{g.C("created_at").Lt(cutoff)},
		Order: []exp.OrderedExpression{g.C("created_at").Asc()},
		Limit: uint(limit),
	})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountTicketsBefore 统计 created_at < cutoff 的票数
func CountTicketsBefore(ctx context.Context, q sqlx.QueryerContext, cutoff int64) (int64, error) {
	return common.CountCtx(ctx, q, TableTickets, g.C("created_at").Lt(cutoff))
}
