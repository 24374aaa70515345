package api

import (
	"encoding/json"
	"time"

	"lotto-server/common/logger"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// HealthController 提供健康检查端点：/healthz 与 /readyz
type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：依次探测 MySQL/Redis，任一失败返回 503
func (c *HealthController) Readyz() {
	status := map[string]string{}
	code := 200
	for _, chk := range deps.Checks {
		if err := chk.Ping(c.Ctx.Request.Context(), time.Second); err != nil {
			logger.Warn("readiness check failed", zap.String("check", chk.Name), zap.Error(err))
			status[chk.Name] = err.Error()
			code = 503
			continue
		}
		status[chk.Name] = "ok"
	}
	b, _ := json.Marshal(status)
	c.Ctx.Output.Header("Content-Type", "application/json; charset=utf-8")
	c.Ctx.Output.SetStatus(code)
	_ = c.Ctx.Output.Body(b)
}
