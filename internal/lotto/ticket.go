package lotto

import (
	"strings"
	"time"
)

// 不发放免费票的匿名/临时账户
var defaultAnonymousOwners = []string{"anonymous", "temp"}

// Ticket 一张彩票，创建后不可变
type Ticket struct {
	ID        string
	Numbers   []Symbol
	OwnerKey  string
	CreatedAt time.Time
	IsBonus   bool
	WonFrom   string
}

// WellFormed 票面必须正好 TicketSize 个非空符号
func (t Ticket) WellFormed() bool {
	if len(t.Numbers) != TicketSize {
		return false
	}
	for _, s := range t.Numbers {
		if strings.TrimSpace(string(s)) == "" {
			return false
		}
	}
	return true
}

// Summary 结算记录中保存的票摘要
type Summary struct {
	ID       string   `json:"id"`
	Numbers  []Symbol `json:"numbers"`
	OwnerKey string   `json:"owner_key"`
}

func (t Ticket) Summary() Summary {
	return Summary{ID: t.ID, Numbers: append([]Symbol(nil), t.Numbers...), OwnerKey: t.OwnerKey}
}

// IsRealOwner 账户是否为真实账户（非空、非匿名、非临时）；anonymous 为配置追加的匿名账户
func IsRealOwner(owner string, anonymous []string) bool {
	o := strings.TrimSpace(owner)
	if o == "" {
		return false
	}
	for _, a := range append(defaultAnonymousOwners[:len(defaultAnonymousOwners):len(defaultAnonymousOwners)], anonymous...) {
		if strings.EqualFold(o, a) {
			return false
		}
	}
	return true
}

// TierLists 各奖级中奖票
type TierLists struct {
	First  []Summary `json:"first"`
	Second []Summary `json:"second"`
	Third  []Summary `json:"third"`
	Free   []Summary `json:"free"`
}

// NewTierLists 空列表而非 nil，序列化为 []
func NewTierLists() TierLists {
	return TierLists{First: []Summary{}, Second: []Summary{}, Third: []Summary{}, Free: []Summary{}}
}

// Add 将票追加到对应奖级，TierNone 忽略
func (l *TierLists) Add(tier Tier, s Summary) {
	switch tier {
	case TierFirst:
		l.First = append(l.First, s)
	case TierSecond:
		l.Second = append(l.Second, s)
	case TierThird:
		l.Third = append(l.Third, s)
	case TierFree:
		l.Free = append(l.Free, s)
	}
}

// Get 返回某奖级的中奖票
func (l TierLists) Get(tier Tier) []Summary {
	switch tier {
	case TierFirst:
		return l.First
	case TierSecond:
		return l.Second
	case TierThird:
		return l.Third
	case TierFree:
		return l.Free
	}
	return nil
}

// Sizes 各奖级中奖数
func (l TierLists) Sizes() map[Tier]int {
	out := make(map[Tier]int, len(Tiers))
	for _, t := range Tiers {
		out[t] = len(l.Get(t))
	}
	return out
}
