package lotto

// Tier 奖级
type Tier string

const (
	TierNone   Tier = ""
	TierFirst  Tier = "first"  // 4 个位置全部相同
	TierSecond Tier = "second" // 4 个符号任意顺序相同
	TierThird  Tier = "third"  // 3 个位置相同
	TierFree   Tier = "free"   // 3 个符号任意顺序相同，奖励一张免费票
)

// Tiers 按优先级排列的全部奖级
var Tiers = []Tier{TierFirst, TierSecond, TierThird, TierFree}

// Prize 单张票的比对结果，四个字段至多一个为 true
type Prize struct {
	First  bool `json:"first"`
	Second bool `json:"second"`
	Third  bool `json:"third"`
	Free   bool `json:"free"`
}

// Tier 将比对结果映射为唯一奖级
func (p Prize) Tier() Tier {
	switch {
	case p.First:
		return TierFirst
	case p.Second:
		return TierSecond
	case p.Third:
		return TierThird
	case p.Free:
		return TierFree
	}
	return TierNone
}

// Counts 返回位置相同个数与按多重集合计的相同个数。
// 多重集合计数：遍历开奖符号，在票的副本中找到即计数并移除一个，重复符号不会被重复计算。
func Counts(ticket, winning []Symbol) (exact, anyOrder int) {
	for i := 0; i < len(ticket) && i < len(winning); i++ {
		if ticket[i] == winning[i] {
			exact++
		}
	}

	rest := append([]Symbol(nil), ticket...)
	for _, w := range winning {
		for j, t := range rest {
			if t == w {
				anyOrder++
				rest = append(rest[:j], rest[j+1:]...)
				break
			}
		}
	}
	return exact, anyOrder
}

// Evaluate 比对一张票与开奖结果。
// 任一输入长度不为 TicketSize 时返回全 false，调用方应事先过滤异常票。
func Evaluate(ticket, winning []Symbol) Prize {
	if len(ticket) != TicketSize || len(winning) != TicketSize {
		return Prize{}
	}
	exact, anyOrder := Counts(ticket, winning)

	// 四个条件按构造互斥：exact==4 蕴含 anyOrder==4；anyOrder==4 且 exact==3 不可能同时成立
	return Prize{
		First:  exact == 4,
		Second: anyOrder == 4 && exact != 4,
		Third:  exact == 3,
		Free:   anyOrder == 3 && exact != 3,
	}
}
