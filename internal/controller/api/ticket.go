package api

import (
	"errors"
	"time"

	"lotto-server/common/logger"
	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

type TicketController struct{ beego.Controller }

// Cleanup 删除过期票：POST /api/tickets/cleanup
func (c *TicketController) Cleanup() {
	traceID := helper.GetTraceID(c.Ctx)
	in, ok, msg := helper.ParseAndValidateCleanup(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	retention := deps.Retention
	if in.RetentionHours > 0 {
		retention = time.Duration(in.RetentionHours) * time.Hour
	}
	batch := deps.CleanupBatch
	if in.Batch > 0 {
		batch = in.Batch
	}

	ctx := c.Ctx.Request.Context()
	res, err := service.CleanupOldTickets(ctx, deps.Tickets, deps.Now(), retention, batch)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, err.Error(), traceID)
			return
		}
		logger.ErrorCtx(ctx, "ticket cleanup failed", zap.Error(err))
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, res, traceID)
}
