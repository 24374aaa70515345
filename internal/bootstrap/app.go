package bootstrap

import (
	"context"
	"fmt"
	"time"

	"lotto-server/common"
	"lotto-server/common/logger"
	"lotto-server/internal/config"
	infmysql "lotto-server/internal/infra/mysql"
	infredis "lotto-server/internal/infra/redis"
	"lotto-server/internal/lotto"
	"lotto-server/internal/service"
	"lotto-server/internal/store"

	"go.uber.org/zap"
)

// App 服务与命令行共用的组件
type App struct {
	Config *config.Config
	Store  store.Store
	MySQL  *store.MySQL // 内存模式下为 nil
	Cache  *infredis.DrawCache
	Engine *service.Engine
	Query  *service.QueryService
}

// New 按配置连接存储与缓存并构造开奖引擎
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Draw.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		a.Store = store.NewMemory()
	default:
		db, err := common.InitDB(ctx, common.DBOptions{
			DSN:             cfg.Database.DSN,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init mysql: %w", err)
		}
		infmysql.Use(db)
		a.MySQL = store.NewMySQL(db)
		a.Store = a.MySQL
	}

	infredis.Init(infredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := infredis.Ping(ctx, 2*time.Second); err != nil {
		// 缓存不可用不影响开奖
		logger.Warn("redis ping failed, cache degraded", zap.Error(err))
	}
	a.Cache = infredis.NewDrawCache(infredis.Client())

	pool, err := lotto.NewSymbolPool(lotto.ParseCatalog(cfg.Draw.Symbols), nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("symbol catalog: %w", err)
	}

	a.Engine = service.NewEngine(a.Store, pool, a.Cache, service.EngineOptions{
		Window:          cfg.Draw.Interval(),
		StaleAfter:      config.StaleAfter,
		TicketScope:     cfg.Draw.TicketScope,
		EvalWorkers:     cfg.Draw.EvalWorkers,
		AnonymousOwners: cfg.Draw.AnonymousOwners,
	})
	a.Query = service.NewQueryService(a.Store, a.Cache)

	logger.Info("app initialized",
		zap.String("store", cfg.Draw.Store),
		zap.Int("symbols", pool.Size()),
		zap.Duration("window", cfg.Draw.Interval()),
		zap.String("ticket_scope", cfg.Draw.TicketScope))
	return a, nil
}

// Cleanup 按配置清理一批过期票
func (a *App) Cleanup(ctx context.Context) (service.CleanupResult, error) {
	return service.CleanupOldTickets(ctx, a.Store, time.Now(), a.Config.Draw.Retention(), a.Config.Draw.Cleanup.Batch)
}

// Close 释放连接
func (a *App) Close() {
	if err := infredis.Close(); err != nil {
		logger.Warn("close redis failed", zap.Error(err))
	}
	if err := infmysql.Close(); err != nil {
		logger.Warn("close mysql failed", zap.Error(err))
	}
}
