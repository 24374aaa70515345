package api

import (
	"errors"

	"lotto-server/common/logger"
	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

type GameController struct{ beego.Controller }

// State 当前展示状态：GET /api/game_state
func (c *GameController) State() {
	traceID := helper.GetTraceID(c.Ctx)
	gs, err := deps.Query.GameState(c.Ctx.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(&c.Controller, "尚无开奖", traceID)
			return
		}
		logger.Error("query game state failed", zap.String("trace_id", traceID), zap.Error(err))
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, gs, traceID)
}
