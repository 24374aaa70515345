package lotto

import (
	"fmt"
	"time"
)

// DefaultWindow 默认开奖窗口：一分钟
const DefaultWindow = time.Minute

// windowLayout 窗口键格式，UTC 补零，字典序与时间序一致
const windowLayout = "2006-01-02-15-04"

// WindowKey 一个开奖窗口。
// 值为窗口起点：墙钟时间转 UTC 后按窗口长度截断，同一窗口内的任意两次调用得到相同的键。
type WindowKey struct {
	start time.Time
	size  time.Duration
}

// WindowAt 计算 t 所在窗口；size<=0 时使用 DefaultWindow，size 小于一分钟时按一分钟处理
func WindowAt(t time.Time, size time.Duration) WindowKey {
	if size < time.Minute {
		size = DefaultWindow
	}
	return WindowKey{start: t.UTC().Truncate(size), size: size}
}

// ParseWindowKey 解析窗口键字符串，键必须落在 size 的整数倍起点上
func ParseWindowKey(s string, size time.Duration) (WindowKey, error) {
	t, err := time.ParseInLocation(windowLayout, s, time.UTC)
	if err != nil {
		return WindowKey{}, fmt.Errorf("invalid window key %q: %w", s, err)
	}
	w := WindowAt(t, size)
	if !w.start.Equal(t) {
		return WindowKey{}, fmt.Errorf("window key %q is not aligned to %s", s, w.size)
	}
	return w, nil
}

// String 形如 2025-10-17-08-05
func (w WindowKey) String() string { return w.start.Format(windowLayout) }

func (w WindowKey) IsZero() bool { return w.start.IsZero() }

// Start 窗口起点（含）
func (w WindowKey) Start() time.Time { return w.start }

// End 窗口终点（不含），即下一次开奖时间
func (w WindowKey) End() time.Time { return w.start.Add(w.size) }

// Size 窗口长度
func (w WindowKey) Size() time.Duration { return w.size }

// Next 下一个窗口
func (w WindowKey) Next() WindowKey { return WindowKey{start: w.End(), size: w.size} }

// Contains t 是否落在窗口内
func (w WindowKey) Contains(t time.Time) bool {
	return !t.Before(w.start) && t.Before(w.End())
}

func (w WindowKey) Before(o WindowKey) bool { return w.start.Before(o.start) }

func (w WindowKey) Equal(o WindowKey) bool { return w.start.Equal(o.start) && w.size == o.size }
