package config

import (
	"sync/atomic"
	"time"
)

// 原子存储当前生效的配置，供各业务读取
var current atomic.Pointer[Config]

func SetCurrent(c *Config) { current.Store(c) }

func GetCurrent() *Config { return current.Load() }

// GetThreshold 返回业务阈值（支持默认值）
func GetThreshold(name string, def int64) int64 {
	cfg := GetCurrent()
	if cfg == nil || cfg.Thresholds == nil {
		return def
	}
	if v, ok := cfg.Thresholds[name]; ok {
		return v
	}
	return def
}

// StaleAfter 开奖锁过期阈值：thresholds.draw_stale_after_ms 优先，其次 draw.stale_after_ms，默认 30s
func StaleAfter() time.Duration {
	def := int64(30000)
	if cfg := GetCurrent(); cfg != nil && cfg.Draw.StaleAfterMS > 0 {
		def = cfg.Draw.StaleAfterMS
	}
	ms := GetThreshold(ThresholdStaleAfterMS, def)
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
