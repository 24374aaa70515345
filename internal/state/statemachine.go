package state

import (
	"fmt"
	"time"
)

// State 开奖锁状态
type State string

const (
	StateUninitialized State = "uninitialized" // 未初始化/无记录
	StateInProgress    State = "in_progress"   // 开奖中
	StateCompleted     State = "completed"     // 已完成（已发布结算结果）
	StateFailed        State = "failed"        // 失败，可重新获取
)

// Event 锁事件
const (
	EvtAcquire  = "acquire"
	EvtComplete = "complete"
	EvtFail     = "fail"
)

// DefaultStaleAfter 进行中锁超过该时长视为持有者已失联
const DefaultStaleAfter = 30 * time.Second

// Valid 是否为已知状态
func (s State) Valid() bool {
	switch s {
	case StateUninitialized, StateInProgress, StateCompleted, StateFailed:
		return true
	}
	return false
}

// NextState 根据当前状态与事件计算下一个状态，非法转换报错。
// in_progress --acquire--> in_progress 仅在锁过期被回收时合法，是否过期由 Decide 判断。
func NextState(cur State, evt string) (State, error) {
	switch cur {
	case StateUninitialized, StateFailed:
		if evt == EvtAcquire {
			return StateInProgress, nil
		}
	case StateInProgress:
		switch evt {
		case EvtAcquire:
			return StateInProgress, nil
		case EvtComplete:
			return StateCompleted, nil
		case EvtFail:
			return StateFailed, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}

// Decision 获取锁的判定结果
type Decision int

const (
	Acquire        Decision = iota // 无记录/未初始化/失败：直接获取
	Reclaim                        // 进行中但已过期：回收
	AlreadySettled                 // 已完成：不再开奖
	Busy                           // 进行中且未过期：放弃本次
)

func (d Decision) String() string {
	switch d {
	case Acquire:
		return "acquire"
	case Reclaim:
		return "reclaim"
	case AlreadySettled:
		return "already_settled"
	case Busy:
		return "busy"
	}
	return "unknown"
}

// Granted 是否由本次调用持有锁
func (d Decision) Granted() bool { return d == Acquire || d == Reclaim }

// Lock 锁的当前快照；Found=false 表示尚无记录
type Lock struct {
	Found     bool
	State     State
	StartedAt time.Time
}

// Decide 纯函数：根据当前锁快照决定本次调用能否开奖。
// 过期判定为 now-StartedAt >= staleAfter；StartedAt 为零值的进行中锁视为已过期。
func Decide(cur Lock, now time.Time, staleAfter time.Duration) Decision {
	if !cur.Found {
		return Acquire
	}
	switch cur.State {
	case StateCompleted:
		return AlreadySettled
	case StateInProgress:
		if cur.StartedAt.IsZero() || now.Sub(cur.StartedAt) >= staleAfter {
			return Reclaim
		}
		return Busy
	default:
		// uninitialized / failed / 未知状态
		return Acquire
	}
}
