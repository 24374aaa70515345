package lotto

import "time"

// Settlement 一个窗口的结算结果，发布后不可变
type Settlement struct {
	ID             string    `json:"id"`
	WindowKey      string    `json:"window_key,omitempty"` // 早期记录可能没有窗口键
	CreatedAt      time.Time `json:"created_at"`
	Winning        []Symbol  `json:"winning_symbols"`
	Tiers          TierLists `json:"tiers"`
	TotalTickets   int       `json:"total_tickets"`
	SkippedTickets int       `json:"skipped_tickets"`
	ProcessID      string    `json:"process_id"`
}

// GameState 对外展示的当前开奖状态（单例）
type GameState struct {
	WindowKey  string    `json:"window_key"`
	Winning    []Symbol  `json:"winning_symbols"`
	NextDrawAt time.Time `json:"next_draw_at"`
	ProcessID  string    `json:"process_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}
