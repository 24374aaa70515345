package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"lotto-server/internal/lotto"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// Memory 进程内实现；一把互斥锁串行化所有读-改-写，等价于 MySQL 实现中的行锁事务
type Memory struct {
	mu       sync.Mutex
	tickets  []lotto.Ticket
	locks    map[string]LockRecord
	results  []lotto.Settlement
	byWindow map[string]int
	state    *lotto.GameState
	events   []model.DrawSettledEvent
}

func NewMemory() *Memory {
	return &Memory{
		locks:    make(map[string]LockRecord),
		byWindow: make(map[string]int),
	}
}

func (m *Memory) ListTickets(_ context.Context, createdAfter time.Time) ([]lotto.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]lotto.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		if !createdAfter.IsZero() && !t.CreatedAt.After(createdAfter) {
			continue
		}
		t.Numbers = append([]lotto.Symbol(nil), t.Numbers...)
		out = append(out, t)
	}
	return out, nil
}

func (m *Memory) InsertTicket(_ context.Context, t lotto.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Numbers = append([]lotto.Symbol(nil), t.Numbers...)
	// 保持按 created_at 升序
	i := sort.Search(len(m.tickets), func(i int) bool { return m.tickets[i].CreatedAt.After(t.CreatedAt) })
	m.tickets = append(m.tickets, lotto.Ticket{})
	copy(m.tickets[i+1:], m.tickets[i:])
	m.tickets[i] = t
	return nil
}

func (m *Memory) DeleteTicketsBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tickets[:0]
	var n int64
	for _, t := range m.tickets {
		if t.CreatedAt.Before(cutoff) && (limit <= 0 || n < int64(limit)) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.tickets = kept
	return n, nil
}

func (m *Memory) CountTicketsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tickets {
		if t.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetLock(_ context.Context, windowKey string) (LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.locks[windowKey]; ok {
		return r, nil
	}
	return LockRecord{WindowKey: windowKey}, nil
}

func (m *Memory) UpdateLock(_ context.Context, windowKey string, fn LockFunc) (LockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.locks[windowKey]
	if !ok {
		cur = LockRecord{WindowKey: windowKey}
	}
	next, write, err := fn(cur)
	if err != nil || !write {
		return cur, err
	}
	next.WindowKey = windowKey
	next.Found = true
	next.UpdatedAt = time.Now().UTC()
	m.locks[windowKey] = next
	return next, nil
}

func (m *Memory) FailLock(_ context.Context, windowKey, token, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.locks[windowKey]
	if !ok || cur.OwnerToken != token || cur.State != state.StateInProgress {
		return ErrLockLost
	}
	cur.State = state.StateFailed
	cur.Error = msg
	cur.UpdatedAt = time.Now().UTC()
	m.locks[windowKey] = cur
	return nil
}

func (m *Memory) FindByWindow(_ context.Context, windowKey string) (lotto.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.byWindow[windowKey]; ok {
		return m.results[i], nil
	}
	return lotto.Settlement{}, ErrNotFound
}

func (m *Memory) FindInRange(_ context.Context, from, to time.Time) (lotto.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  lotto.Settlement
		found bool
	)
	for _, r := range m.results {
		if r.WindowKey != "" || r.CreatedAt.Before(from) || !r.CreatedAt.Before(to) {
			continue
		}
		if !found || r.CreatedAt.Before(best.CreatedAt) {
			best, found = r, true
		}
	}
	if !found {
		return lotto.Settlement{}, ErrNotFound
	}
	return best, nil
}

func (m *Memory) FindByID(_ context.Context, id string) (lotto.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return lotto.Settlement{}, ErrNotFound
}

func (m *Memory) Latest(_ context.Context, limit int) ([]lotto.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]lotto.Settlement(nil), m.results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CommitResult(_ context.Context, token string, res lotto.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[res.WindowKey]
	if !ok || lock.OwnerToken != token || lock.State != state.StateInProgress {
		return ErrLockLost
	}
	if _, dup := m.byWindow[res.WindowKey]; dup && res.WindowKey != "" {
		return ErrDuplicateResult
	}
	m.results = append(m.results, res)
	if res.WindowKey != "" {
		m.byWindow[res.WindowKey] = len(m.results) - 1
	}
	m.events = append(m.events, settledEvent(res))

	lock.State = state.StateCompleted
	lock.ResultID = res.ID
	lock.Error = ""
	lock.UpdatedAt = time.Now().UTC()
	m.locks[res.WindowKey] = lock
	return nil
}

func (m *Memory) SaveGameState(_ context.Context, gs lotto.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs.Winning = append([]lotto.Symbol(nil), gs.Winning...)
	m.state = &gs
	return nil
}

func (m *Memory) GetGameState(_ context.Context) (lotto.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return lotto.GameState{}, ErrNotFound
	}
	return *m.state, nil
}

// PutResult 直接写入一条结果（导入早期无窗口键的记录）
func (m *Memory) PutResult(res lotto.Settlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	if res.WindowKey != "" {
		m.byWindow[res.WindowKey] = len(m.results) - 1
	}
}

// Events 已提交的 draw_settled 事件
func (m *Memory) Events() []model.DrawSettledEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DrawSettledEvent(nil), m.events...)
}

// Counts 结果数与票数
func (m *Memory) Counts() (results, tickets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results), len(m.tickets)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*MySQL)(nil)
)
