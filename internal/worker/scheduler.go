package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/service"

	"go.uber.org/zap"
)

// Engine 调度器需要的开奖能力
type Engine interface {
	service.Drawer
	CurrentWindow() lotto.WindowKey
}

// Leader 多实例部署下的 leader 租约；nil 表示单实例
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) (bool, error)
}

// Scheduler 在每个窗口边界触发一次开奖，不重试。
// 上一次开奖仍在执行时，本次触发直接跳过。
type Scheduler struct {
	engine   Engine
	leader   Leader
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	running atomic.Bool
	ticks   chan time.Time // 测试注入；nil 时按窗口边界计时
}

func NewScheduler(e Engine, leader Leader, interval time.Duration) *Scheduler {
	if interval < time.Minute {
		interval = lotto.DefaultWindow
	}
	return &Scheduler{
		engine:   e,
		leader:   leader,
		interval: interval,
		timeout:  interval,
		now:      time.Now,
	}
}

// Start 后台运行直到 ctx 取消
func (s *Scheduler) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.loop(ctx)
	}()
	logger.Info("draw scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) loop(ctx context.Context) {
	var draws sync.WaitGroup
	defer draws.Wait()
	for {
		var fire <-chan time.Time
		var timer *time.Timer
		if s.ticks != nil {
			fire = s.ticks
		} else {
			timer = time.NewTimer(s.untilNextBoundary())
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-fire:
		}
		if !s.running.CompareAndSwap(false, true) {
			logger.Warn("previous draw still running, tick skipped")
			continue
		}
		draws.Add(1)
		go func() {
			defer draws.Done()
			defer s.running.Store(false)
			s.Tick(ctx)
		}()
	}
}

// untilNextBoundary 距下一个窗口起点的时长
func (s *Scheduler) untilNextBoundary() time.Duration {
	now := s.now()
	d := lotto.WindowAt(now, s.interval).End().Sub(now)
	if d <= 0 {
		d = s.interval
	}
	return d
}

// Tick 对当前窗口执行一次开奖，结果只记日志
func (s *Scheduler) Tick(ctx context.Context) service.TriggerResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.engine.CurrentWindow()
	if s.leader != nil {
		ok, err := s.leader.TryAcquire(ctx)
		if err != nil {
			// Redis 不可用时仍由开奖锁保证唯一
			logger.Warn("scheduler leader lease unavailable, drawing anyway", zap.Error(err))
		} else if !ok {
			logger.Debug("not scheduler leader, tick skipped", zap.String("window_key", key.String()))
			return service.TriggerResult{WindowKey: key.String(), InProgress: true}
		} else {
			defer func() {
				if _, err := s.leader.Release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("release scheduler lease failed", zap.Error(err))
				}
			}()
		}
	}

	r := service.Trigger(ctx, s.engine, key, service.SourceSchedule)
	fields := []zap.Field{
		zap.String("window_key", r.WindowKey),
		zap.String("result_id", r.ResultID),
		zap.Bool("already_processed", r.AlreadyProcessed),
		zap.Bool("in_progress", r.InProgress),
	}
	if r.Error != "" {
		logger.Error("scheduled draw failed", append(fields, zap.String("error", r.Error))...)
	} else {
		logger.Info("scheduled draw finished", fields...)
	}
	return r
}

// CleanupJob 周期性清理过期票
type CleanupJob struct {
	Run      func(ctx context.Context) (service.CleanupResult, error)
	Interval time.Duration
}

// Start 后台运行直到 ctx 取消；一批没删完时下一轮继续
func (j CleanupJob) Start(ctx context.Context, wg *sync.WaitGroup) {
	if j.Run == nil {
		return
	}
	if j.Interval <= 0 {
		j.Interval = time.Hour
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := j.Run(ctx); err != nil {
					logger.Warn("ticket cleanup failed", zap.Error(err))
				}
			}
		}
	}()
	logger.Info("ticket cleanup job started", zap.Duration("interval", j.Interval))
}
