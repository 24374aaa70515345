package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/bootstrap"
	"lotto-server/internal/config"
	"lotto-server/internal/controller/api"
	infmysql "lotto-server/internal/infra/mysql"
	infredis "lotto-server/internal/infra/redis"
	infmq "lotto-server/internal/infra/rocketmq"
	"lotto-server/internal/worker"
	"lotto-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger("lotto-server")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 热更新：日志级别与阈值（阈值由 config.StaleAfter 实时读取）
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
		logger.Info("config reloaded", zap.Duration("stale_after", config.StaleAfter()))
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("init app failed", zap.Error(err))
	}
	defer app.Close()

	infmq.Init(infmq.Options{
		Endpoint:  cfg.RocketMQ.Endpoint,
		AccessKey: cfg.RocketMQ.AccessKey,
		SecretKey: cfg.RocketMQ.SecretKey,
		Topics:    []string{cfg.RocketMQ.TopicSettled},
	})
	defer infmq.Shutdown()

	var wg sync.WaitGroup

	if cfg.Draw.Scheduler.Enabled {
		var leader worker.Leader
		if c := infredis.Client(); c != nil {
			ttl := time.Duration(cfg.Draw.Scheduler.LeaderLeaseSec) * time.Second
			leader = infredis.NewLease(c, infredis.KeySchedulerLeader, uuid.NewString(), ttl)
		}
		worker.NewScheduler(app.Engine, leader, cfg.Draw.Interval()).Start(ctx, &wg)
	}
	if cfg.Draw.Cleanup.Enabled {
		worker.CleanupJob{
			Run:      app.Cleanup,
			Interval: time.Duration(cfg.Draw.Cleanup.IntervalMin) * time.Minute,
		}.Start(ctx, &wg)
	}
	if cfg.Outbox.Enabled && app.MySQL != nil {
		topic := cfg.RocketMQ.TopicSettled
		worker.StartOutboxDispatcher(ctx, &wg, app.MySQL, worker.OutboxOptions{
			Interval:  time.Duration(cfg.Outbox.IntervalMS) * time.Millisecond,
			BatchSize: cfg.Outbox.BatchSize,
			TopicOf:   func(string) string { return strings.ReplaceAll(topic, ".", "_") },
		})
	}

	api.Init(api.Deps{
		Engine:       app.Engine,
		Query:        app.Query,
		Tickets:      app.Store,
		Retention:    cfg.Draw.Retention(),
		CleanupBatch: cfg.Draw.Cleanup.Batch,
		Checks: []api.Check{
			{Name: "mysql", Ping: infmysql.Ping},
			{Name: "redis", Ping: infredis.Ping},
		},
	})
	routers.Init()

	beego.BConfig.AppName = "lotto-server"
	beego.BConfig.CopyRequestBody = true
	beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	beego.BConfig.Log.AccessLogs = false
	beego.BConfig.Log.EnableStaticLogs = false

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := beego.BeeApp.Server.Shutdown(sctx); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("http server starting", zap.Int("port", cfg.Server.Port))
	beego.Run()

	wg.Wait()
	logger.Info("server stopped")
}
