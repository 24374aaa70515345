package service

import (
	"context"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// issueBonuses 为免费奖级的真实账户各发一张新票；单张失败只记日志
func (e *Engine) issueBonuses(ctx context.Context, res lotto.Settlement) int {
	issued := 0
	for _, w := range res.Tiers.Free {
		if !lotto.IsRealOwner(w.OwnerKey, e.opts.AnonymousOwners) {
			metrics.RecordBonus("ineligible")
			continue
		}
		t := lotto.Ticket{
			ID:        uuid.NewString(),
			Numbers:   e.pool.Draw(lotto.TicketSize),
			OwnerKey:  w.OwnerKey,
			CreatedAt: e.opts.Now().UTC(),
			IsBonus:   true,
			WonFrom:   w.ID,
		}
		if err := e.store.InsertTicket(ctx, t); err != nil {
			metrics.RecordBonus("fail")
			logger.ErrorCtx(ctx, "issue bonus ticket failed",
				zap.String("result_id", res.ID), zap.String("won_from", w.ID),
				zap.String("owner_key", w.OwnerKey), zap.Error(err))
			continue
		}
		metrics.RecordBonus("issued")
		issued++
		logger.InfoCtx(ctx, "bonus ticket issued",
			zap.String("ticket_id", t.ID), zap.String("won_from", w.ID), zap.String("owner_key", w.OwnerKey))
	}
	return issued
}
