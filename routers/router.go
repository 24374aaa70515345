package routers

import (
	"lotto-server/internal/config"
	"lotto-server/internal/controller/api"
	"lotto-server/internal/metrics"
	"lotto-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init 注册HTTP路由与全局过滤器；需在 config.SetCurrent 与 api.Init 之后调用
func Init() {
	cfg := config.GetCurrent()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（包裹整个处理链）
	beego.InsertFilterChain("/*", middleware.RecoveryChain)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeRouter, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter, beego.WithReturnOnOutput(false))

	// 健康检查与指标（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")
	if cfg == nil || cfg.Observability.EnableProm {
		beego.Handler("/metrics", promhttp.Handler())
	}

	// ========== 查询 API（公开） ==========
	beego.Router("/api/draw/result/:window_key", &api.DrawController{}, "get:Result")
	beego.Router("/api/draw/results", &api.DrawController{}, "get:Results")
	beego.Router("/api/game_state", &api.GameController{}, "get:State")

	// ========== 管理 API（需要管理员认证） ==========
	beego.InsertFilter("/api/draw/trigger", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/draw/trigger", &api.DrawController{}, "post:Trigger")

	beego.InsertFilter("/api/tickets/cleanup", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/tickets/cleanup", &api.TicketController{}, "post:Cleanup")
}
