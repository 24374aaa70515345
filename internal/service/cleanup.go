package service

import (
	"context"
	"fmt"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/metrics"
	"lotto-server/internal/store"

	"go.uber.org/zap"
)

// MaxCleanupBatch 单次最多删除的票数
const MaxCleanupBatch = 500

// DefaultTicketRetention 票默认保留 7 天
const DefaultTicketRetention = 7 * 24 * time.Hour

type CleanupResult struct {
	Deleted   int64     `json:"deleted"`
	Remaining int64     `json:"remaining"` // 仍早于截止时间的票，>0 时需再次执行
	Cutoff    time.Time `json:"cutoff"`
}

// CleanupOldTickets 删除早于 now-retention 的最旧一批票
func CleanupOldTickets(ctx context.Context, s store.TicketStore, now time.Time, retention time.Duration, batch int) (CleanupResult, error) {
	if retention <= 0 {
		return CleanupResult{}, fmt.Errorf("%w: retention must be positive", ErrBadRequest)
	}
	if batch <= 0 || batch > MaxCleanupBatch {
		batch = MaxCleanupBatch
	}
	start := time.Now()
	out := CleanupResult{Cutoff: now.Add(-retention).UTC()}

	n, err := s.DeleteTicketsBefore(ctx, out.Cutoff, batch)
	metrics.RecordCleanup(n, err, start)
	if err != nil {
		return out, fmt.Errorf("delete old tickets: %w", err)
	}
	out.Deleted = n

	rest, err := s.CountTicketsBefore(ctx, out.Cutoff)
	if err != nil {
		logger.WarnCtx(ctx, "count remaining old tickets failed", zap.Error(err))
	}
	out.Remaining = rest

	logger.InfoCtx(ctx, "old tickets cleaned",
		zap.Int64("deleted", out.Deleted), zap.Int64("remaining", out.Remaining), zap.Time("cutoff", out.Cutoff))
	return out, nil
}
