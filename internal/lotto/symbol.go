package lotto

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

// Symbol 可开奖的符号（emoji），仅做值相等比较
type Symbol string

// TicketSize 每张票与开奖结果的符号个数
const TicketSize = 4

// DefaultCatalog 默认符号表（25 个）
var DefaultCatalog = []Symbol{
	"🌟", "🎈", "🎨", "🌈", "🦄", "🍭", "🎪", "🎠", "🎡", "🎢",
	"🌺", "🦋", "🐬", "🌸", "🍦", "🎵", "🎯", "🌴", "🎩", "🎭",
	"🎁", "🎮", "🚀", "🌍", "🍀",
}

var ErrEmptyCatalog = errors.New("symbol catalog is empty")

// Intner 随机源，测试中可替换为确定序列
type Intner interface {
	Intn(n int) int
}

// SymbolPool 固定符号表上的均匀有放回抽样
type SymbolPool struct {
	mu      sync.Mutex
	catalog []Symbol
	index   map[Symbol]struct{}
	rnd     Intner
}

// NewSymbolPool 构造符号池；catalog 去空去重，rnd 为 nil 时使用 crypto/rand 播种的 PCG 源
func NewSymbolPool(catalog []Symbol, rnd Intner) (*SymbolPool, error) {
	cleaned := lo.Uniq(lo.FilterMap(catalog, func(s Symbol, _ int) (Symbol, bool) {
		t := Symbol(strings.TrimSpace(string(s)))
		return t, t != ""
	}))
	if len(cleaned) == 0 {
		return nil, ErrEmptyCatalog
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(seed()))
	}
	idx := make(map[Symbol]struct{}, len(cleaned))
	for _, s := range cleaned {
		idx[s] = struct{}{}
	}
	return &SymbolPool{catalog: cleaned, index: idx, rnd: rnd}, nil
}

// ParseCatalog 从配置字符串列表构造符号表，空列表返回默认表
func ParseCatalog(raw []string) []Symbol {
	if len(raw) == 0 {
		return append([]Symbol(nil), DefaultCatalog...)
	}
	return lo.Map(raw, func(s string, _ int) Symbol { return Symbol(s) })
}

// Draw 有放回地抽取 n 个符号
func (p *SymbolPool) Draw(n int) []Symbol {
	if n <= 0 {
		return nil
	}
	out := make([]Symbol, n)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range out {
		out[i] = p.catalog[p.rnd.Intn(len(p.catalog))]
	}
	return out
}

// Contains 符号是否属于符号表
func (p *SymbolPool) Contains(s Symbol) bool {
	_, ok := p.index[s]
	return ok
}

// Size 符号表大小，直接决定中奖概率
func (p *SymbolPool) Size() int { return len(p.catalog) }

// Catalog 返回符号表副本
func (p *SymbolPool) Catalog() []Symbol { return append([]Symbol(nil), p.catalog...) }

func seed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
