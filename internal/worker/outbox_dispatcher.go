package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lotto-server/common/logger"
	infmq "lotto-server/internal/infra/rocketmq"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"

	"go.uber.org/zap"
)

// OutboxStore outbox 表读写
type OutboxStore interface {
	ListOutboxPending(ctx context.Context, limit int) ([]model.Outbox, error)
	MarkOutboxSent(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, lastError string) error
}

// OutboxOptions 分发参数
type OutboxOptions struct {
	Interval  time.Duration
	BatchSize int
	// TopicOf 将 outbox 中的逻辑 topic 映射为 MQ topic，为空时原样使用
	TopicOf func(string) string
}

// StartOutboxDispatcher 启动 Outbox 分发器，支持通过 ctx 优雅退出
// 仅当 MQ 已启用时运行。
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup, src OutboxStore, opts OutboxOptions) {
	if !infmq.Enabled() || src == nil {
		logger.Info("outbox dispatcher not started: mq disabled or no outbox store")
		return
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	pub := infmq.PublisherInstance()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				DispatchOutbox(ctx, src, pub, opts)
			}
		}
	}()
	logger.Info("outbox dispatcher started", zap.Duration("interval", opts.Interval), zap.Int("batch", opts.BatchSize))
}

// DispatchOutbox 投递一批待发送消息，返回成功与失败条数
func DispatchOutbox(ctx context.Context, src OutboxStore, pub infmq.Publisher, opts OutboxOptions) (sent, failed int) {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := src.ListOutboxPending(c, opts.BatchSize)
	cancel()
	if err != nil {
		logger.Warn("outbox: list pending failed", zap.Error(err))
		return 0, 0
	}
	for _, r := range rows {
		topic := r.Topic
		if opts.TopicOf != nil {
			topic = opts.TopicOf(r.Topic)
		}
		if err := pub.Publish(ctx, topic, r.BizKey, []byte(r.Payload)); err != nil {
			failed++
			metrics.RecordOutbox(r.Topic, "fail")
			logger.Warn("outbox: publish failed", zap.Int64("id", r.ID), zap.String("topic", topic),
				zap.Int("retry_count", r.RetryCount), zap.Error(err))
			if err := src.MarkOutboxFailed(ctx, r.ID, truncateErr(err)); err != nil {
				logger.Warn("outbox: mark failed failed", zap.Int64("id", r.ID), zap.Error(err))
			}
			continue
		}
		sent++
		metrics.RecordOutbox(r.Topic, "sent")
		if err := src.MarkOutboxSent(ctx, r.ID); err != nil {
			logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
		}
	}
	return sent, failed
}

func truncateErr(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	if len(b) > 240 {
		return string(b[:240])
	}
	return string(b)
}
