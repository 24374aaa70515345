package middleware

import (
	"crypto/subtle"
	"strings"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/common/helper"
	"lotto-server/internal/common/response"
	"lotto-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// AdminAuthFilter 管理员认证过滤器（Bearer Token）
// 用于保护管理接口（手动开奖、票清理）
func AdminAuthFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	traceID := helper.GetTraceID(ctx)

	// 如果未启用管理员认证，跳过
	if cfg == nil || !cfg.Auth.Admin.Enabled {
		return
	}

	returnAuthError := func(message string) {
		ctx.Output.SetStatus(401)
		_ = ctx.Output.JSON(response.APIResponse{
			Code:      response.CodeUnauthorized,
			Message:   message,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	authHeader := strings.TrimSpace(ctx.Input.Header("Authorization"))
	if authHeader == "" {
		logger.Warn("missing admin token", zap.String("trace_id", traceID))
		returnAuthError("缺少管理员认证信息")
		return
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		logger.Warn("invalid admin token format", zap.String("trace_id", traceID))
		returnAuthError("无效的认证格式")
		return
	}
	token = strings.TrimSpace(token)

	if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Auth.Admin.Token)) != 1 {
		logger.Warn("invalid admin token",
			zap.String("trace_id", traceID),
			zap.String("token_prefix", token[:min(len(token), 4)]+"..."))
		returnAuthError("无效的管理员Token")
		return
	}

	ctx.Input.SetData("is_admin", true)
}
