package middleware

import (
	"lotto-server/common/logger"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

const maxRequestIDLen = 64

// RequestIDFilter 沿用或生成 X-Request-Id，写入 trace_id 并放进请求 context
func RequestIDFilter(ctx *context.Context) {
	id := ctx.Input.Header("X-Request-Id")
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Request = ctx.Request.WithContext(logger.WithTraceID(ctx.Request.Context(), id))
	ctx.Output.Header("X-Request-Id", id)
}
