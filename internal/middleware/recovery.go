package middleware

import (
	"runtime/debug"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"

	"github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// RecoveryChain 捕获后续处理链中未处理的 panic，返回统一 500 响应
func RecoveryChain(next web.FilterFunc) web.FilterFunc {
	return func(ctx *beegocontext.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			// StopRun 交回框架处理
			if err == web.ErrAbort {
				panic(err)
			}
			traceID := helper.GetTraceID(ctx)
			logger.Error("panic recovered",
				zap.String("trace_id", traceID),
				zap.String("method", ctx.Request.Method),
				zap.String("path", ctx.Request.URL.Path),
				zap.Any("error", err),
				zap.String("stack", string(debug.Stack())))

			if ctx.ResponseWriter.Started {
				return
			}
			ctx.Output.SetStatus(500)
			_ = ctx.Output.JSON(response.APIResponse{
				Code:      response.CodeSystemError,
				Message:   response.ErrorMessages[response.CodeSystemError],
				TraceID:   traceID,
				Timestamp: time.Now().UnixMilli(),
			}, false, false)
		}()
		next(ctx)
	}
}
