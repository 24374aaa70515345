package config

import (
	"context"
	"fmt"

	"lotto-server/common/logger"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"
)

// StartWatch 监听 Nacos 配置变化，在变更时回调 onChange(old, new)
// 未配置 Nacos 时跳过（Etcd/本地文件不做热更新）
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	env, err := nacosFromEnv()
	if err != nil {
		logger.Info("nacos not configured, config watch skipped")
		return nil
	}
	client, err := nacosClient(env)
	if err != nil {
		return err
	}

	param := vo.ConfigParam{
		DataId: env.dataID,
		Group:  env.group,
		OnChange: func(namespace, group, dataId, data string) {
			var newCfg Config
			if err := decode([]byte(data), dataId, &newCfg); err != nil {
				logger.Error("parse nacos config failed", zap.String("data_id", dataId), zap.Error(err))
				return
			}
			newCfg.ApplyDefaults()
			if err := newCfg.Validate(); err != nil {
				// 非法配置不生效，保留旧配置
				logger.Error("reject invalid nacos config", zap.String("data_id", dataId), zap.Error(err))
				return
			}

			oldCfg := GetCurrent()
			SetCurrent(&newCfg)
			if onChange != nil {
				onChange(oldCfg, &newCfg)
			}
			logger.Info("nacos config updated", zap.String("namespace", namespace),
				zap.String("group", group), zap.String("data_id", dataId))
		},
	}
	if err := client.ListenConfig(param); err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := client.CancelListenConfig(vo.ConfigParam{DataId: env.dataID, Group: env.group}); err != nil {
			logger.Warn("cancel nacos listen failed", zap.Error(err))
		}
	}()

	logger.Info("nacos config watch started", zap.String("data_id", env.dataID), zap.String("group", env.group))
	return nil
}
