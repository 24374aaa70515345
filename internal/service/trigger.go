package service

import (
	"context"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/metrics"

	"github.com/google/uuid"
)

// 触发来源
const (
	SourceSchedule = "schedule"
	SourceHTTP     = "http"
	SourceCLI      = "cli"
)

// Drawer 可执行开奖的对象
type Drawer interface {
	RunDraw(ctx context.Context, key lotto.WindowKey) (DrawOutcome, error)
}

// TriggerResult 定时、HTTP、CLI 三种触发方式共用的返回结构
type TriggerResult struct {
	Success          bool   `json:"success"`
	WindowKey        string `json:"windowKey"`
	ResultID         string `json:"resultId,omitempty"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	InProgress       bool   `json:"inProgress"`
	BonusIssued      int    `json:"bonusIssued,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Trigger 执行一次开奖并映射为 TriggerResult。
// 定时与 CLI 触发没有上游 trace_id，这里补一个
func Trigger(ctx context.Context, d Drawer, key lotto.WindowKey, source string) TriggerResult {
	if logger.TraceID(ctx) == "" {
		ctx = logger.WithTraceID(ctx, uuid.NewString())
	}
	ctx = logger.WithSource(ctx, source)
	start := time.Now()
	out, err := d.RunDraw(ctx, key)
	if err != nil {
		metrics.RecordDraw("fail", source, start)
		return TriggerResult{WindowKey: key.String(), Error: err.Error()}
	}
	metrics.RecordDraw(string(out.Outcome), source, start)

	r := TriggerResult{WindowKey: out.WindowKey, ResultID: out.ResultID, BonusIssued: out.BonusIssued}
	switch out.Outcome {
	case OutcomeSettled:
		r.Success = true
	case OutcomeAlreadySettled:
		r.Success, r.AlreadyProcessed = true, true
	case OutcomeBusy:
		r.InProgress = true
	}
	return r
}
