package store

import (
	"lotto-server/internal/lotto"
	"lotto-server/internal/model"

	"github.com/samber/lo"
)

// settledEvent 由结算结果构造 draw_settled 消息体
func settledEvent(res lotto.Settlement) model.DrawSettledEvent {
	sizes := make(map[string]int, len(lotto.Tiers))
	for tier, n := range res.Tiers.Sizes() {
		sizes[string(tier)] = n
	}
	return model.DrawSettledEvent{
		Event:     model.TopicDrawSettled,
		ResultID:  res.ID,
		WindowKey: res.WindowKey,
		Winning:   lo.Map(res.Winning, func(s lotto.Symbol, _ int) string { return string(s) }),
		TierSizes: sizes,
		Total:     res.TotalTickets,
		Skipped:   res.SkippedTickets,
		ProcessID: res.ProcessID,
		SettledAt: res.CreatedAt.UnixMilli(),
	}
}
