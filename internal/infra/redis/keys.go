package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixSettledWindow：已结算窗口 -> 结算结果ID，开奖前置检查的快速路径（短 TTL）
	PrefixSettledWindow = "lotto:settled:"
	// KeyGameState：当前展示状态（JSON）
	KeyGameState = "lotto:game_state"
	// ChannelGameState：展示状态变更通知频道（PUBLISH）
	ChannelGameState = "lotto:game_state"
	// KeySchedulerLeader：调度器 leader 租约，多实例部署时只有一个实例发起定时开奖
	KeySchedulerLeader = "lotto:scheduler:leader"
)

// SettledWindowKey 形如：lotto:settled:2025-10-17-08-05
func SettledWindowKey(windowKey string) string { return PrefixSettledWindow + windowKey }
