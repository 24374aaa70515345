package model

import (
	"context"
	"encoding/json"
	"time"

	"lotto-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const TableOutbox = "outbox"

// TopicDrawSettled 结算完成事件
const TopicDrawSettled = "draw_settled"

// outbox status
const (
	OutboxPending int8 = 1
	OutboxSent    int8 = 2
	OutboxDead    int8 = 3
)

// MaxOutboxRetry 超过后不再投递
const MaxOutboxRetry = 10

// Outbox 对应 outbox 表（与业务写入同事务）
type Outbox struct {
	ID         int64  `db:"id" goqu:"skipinsert"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"` // 窗口键
	Payload    string `db:"payload"`
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// DrawSettledEvent draw_settled 消息体
type DrawSettledEvent struct {
	Event     string         `json:"event"`
	ResultID  string         `json:"result_id"`
	WindowKey string         `json:"window_key"`
	Winning   []string       `json:"winning_symbols"`
	TierSizes map[string]int `json:"tier_sizes"`
	Total     int            `json:"total_tickets"`
	Skipped   int            `json:"skipped_tickets"`
	ProcessID string         `json:"process_id"`
	SettledAt int64          `json:"settled_at"`
}

// CreateOutbox 序列化 payload 并写入一条待发送记录
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = common.InsertCtx(ctx, exec, TableOutbox, Outbox{
		Topic:     topic,
		BizKey:    bizKey,
		Payload:   string(b),
		Status:    OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

// ListOutboxPending 待发送且未超过重试上限的记录
func ListOutboxPending(ctx context.Context, q sqlx.QueryerContext, limit int) ([]Outbox, error) {
	var list []Outbox
	err := common.SelectAllCtx(ctx, q, &list, common.QueryArg{
		Table:  TableOutbox,
		Fields: common.EnumFields(Outbox{}),
		Ex:     []exp.Expression{g.C("status").Eq(OutboxPending), g.C("retry_count").Lt(MaxOutboxRetry)},
		Order:  []exp.OrderedExpression{g.C("id").Asc()},
		Limit:  uint(limit),
	})
	return list, err
}

// MarkOutboxSent 标记已发送
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	_, err := common.UpdateCtx(ctx, exec, TableOutbox, g.Record{
		"status":     OutboxSent,
		"updated_at": time.Now().UnixMilli(),
	}, g.C("id").Eq(id))
	return err
}

// MarkOutboxFailed 记录失败；第 MaxOutboxRetry 次失败后置为永久失败
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, MaxOutboxRetry-1, OutboxDead, OutboxPending, lastError, time.Now().UnixMilli(), id)
	return err
}
