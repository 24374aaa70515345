package api

import (
	"context"
	"time"

	"lotto-server/internal/lotto"
	"lotto-server/internal/service"
	"lotto-server/internal/store"
)

// DrawEngine 控制器需要的开奖能力
type DrawEngine interface {
	service.Drawer
	ParseWindow(s string) (lotto.WindowKey, error)
	ParseTriggerWindow(s string) (lotto.WindowKey, error)
}

// Check 就绪检查项
type Check struct {
	Name string
	Ping func(ctx context.Context, timeout time.Duration) error
}

// Deps 控制器依赖，由 main 在注册路由前注入
type Deps struct {
	Engine       DrawEngine
	Query        *service.QueryService
	Tickets      store.TicketStore
	Retention    time.Duration
	CleanupBatch int
	Checks       []Check
	Now          func() time.Time
}

var deps Deps

// Init 注入依赖
func Init(d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	deps = d
}
