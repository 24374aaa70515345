package api

import (
	"errors"
	"net/http"

	"lotto-server/common/logger"
	helper "lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

type DrawController struct{ beego.Controller }

// Trigger 手动开奖：POST /api/draw/trigger
// 与定时触发语义一致；开奖进行中返回 409 与 inProgress=true
func (c *DrawController) Trigger() {
	traceID := helper.GetTraceID(c.Ctx)
	in, ok, msg := helper.ParseAndValidateTrigger(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	key, err := deps.Engine.ParseTriggerWindow(in.WindowKey)
	if err != nil {
		response.ErrorWithMessage(&c.Controller, http.StatusBadRequest, response.CodeInvalidWindow, err.Error(), traceID)
		return
	}

	ctx := c.Ctx.Request.Context()
	r := service.Trigger(ctx, deps.Engine, key, service.SourceHTTP)
	switch {
	case r.Success:
		response.Success(&c.Controller, r, traceID)
	case r.InProgress:
		response.ErrorWithData(&c.Controller, http.StatusConflict, response.CodeDrawInProgress, r, traceID)
	default:
		logger.ErrorCtx(ctx, "manual draw failed", zap.String("window_key", r.WindowKey), zap.String("error", r.Error))
		response.ErrorWithData(&c.Controller, http.StatusInternalServerError, response.CodeDrawFailed, r, traceID)
	}
}

// Result 按窗口查询结算结果：GET /api/draw/result/:window_key
func (c *DrawController) Result() {
	traceID := helper.GetTraceID(c.Ctx)
	key, err := deps.Engine.ParseWindow(c.Ctx.Input.Param(":window_key"))
	if err != nil {
		response.ErrorWithMessage(&c.Controller, http.StatusBadRequest, response.CodeInvalidWindow, err.Error(), traceID)
		return
	}
	res, err := deps.Query.Result(c.Ctx.Request.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(&c.Controller, "该窗口尚未开奖", traceID)
			return
		}
		logger.Error("query settlement failed", zap.String("trace_id", traceID),
			zap.String("window_key", key.String()), zap.Error(err))
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, res, traceID)
}

// Results 最近的结算结果：GET /api/draw/results?limit=N（N<=50）
func (c *DrawController) Results() {
	traceID := helper.GetTraceID(c.Ctx)
	limit := helper.QueryInt(c.Ctx, "limit", service.MaxResultsLimit)
	list, err := deps.Query.Latest(c.Ctx.Request.Context(), limit)
	if err != nil {
		logger.Error("query latest settlements failed", zap.String("trace_id", traceID), zap.Error(err))
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, list, traceID)
}
