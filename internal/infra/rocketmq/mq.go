package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// Publisher 消息发送
type Publisher interface {
	Publish(ctx context.Context, topic, key string, body []byte) error
}

// Options 生产者配置
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Topics    []string
}

var (
	mu      sync.RWMutex
	enabled bool
	prod    rmq.Producer
	pub     Publisher = &stubPublisher{}
)

// Enabled MQ 是否已配置且生产者已启动
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// PublisherInstance 返回当前 publisher（未启用时为丢弃消息的 stub）
func PublisherInstance() Publisher {
	mu.RLock()
	defer mu.RUnlock()
	return pub
}

type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(ctx context.Context, topic, key string, body []byte) error {
	msg := &rmq.Message{Topic: topic, Body: body}
	if key != "" {
		msg.SetKeys(key)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.p.Send(ctx, msg)
	return err
}

type stubPublisher struct{}

func (s *stubPublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	logger.Warn("[mq disabled] drop message", zap.String("topic", topic), zap.String("key", key))
	return nil
}

// Init 初始化生产者；endpoint 或凭证缺失时保持禁用
func Init(o Options) {
	// 避免 SDK 默认写 /logs
	rmq.ResetLogger()

	// 只取第一个地址，去掉 scheme
	endpoint := strings.TrimSpace(o.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	if endpoint == "" {
		logger.Info("rocketmq disabled: empty endpoint")
		return
	}
	// 缺少凭证时 SDK 在签名阶段会空指针
	if strings.TrimSpace(o.AccessKey) == "" || strings.TrimSpace(o.SecretKey) == "" {
		logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		return
	}

	cfg := &rmq.Config{
		Endpoint:    endpoint,
		Credentials: &credentials.SessionCredentials{AccessKey: o.AccessKey, AccessSecret: o.SecretKey},
	}
	var opts []rmq.ProducerOption
	if len(o.Topics) > 0 {
		topics := make([]string, 0, len(o.Topics))
		for _, t := range o.Topics {
			if t = strings.TrimSpace(strings.ReplaceAll(t, ".", "_")); t != "" {
				topics = append(topics, t)
			}
		}
		opts = append(opts, rmq.WithTopics(topics...))
		logger.Info("rocketmq: topics configured", zap.Strings("topics", topics))
	}

	p, err := rmq.NewProducer(cfg, opts...)
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		return
	}

	// 异步启动，最多等待 2 秒
	startDone := make(chan error, 1)
	go func() { startDone <- p.Start() }()

	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed (will use stub publisher)", zap.Error(err))
			return
		}
	case <-time.After(2 * time.Second):
		logger.Warn("rocketmq: producer start timeout (will use stub publisher)")
		return
	}

	mu.Lock()
	prod = p
	pub = &rmqPublisher{p: p}
	enabled = true
	mu.Unlock()
	logger.Info("rocketmq enabled", zap.String("endpoint", endpoint))
}

// Shutdown 优雅关闭生产者
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if prod == nil {
		return
	}
	if err := prod.GracefulStop(); err != nil {
		logger.Warn("rocketmq: producer stop failed", zap.Error(err))
	}
	prod = nil
	enabled = false
	pub = &stubPublisher{}
}
