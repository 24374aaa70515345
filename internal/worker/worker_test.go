package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lotto-server/internal/lotto"
	"lotto-server/internal/model"
	"lotto-server/internal/service"
)

type fakeEngine struct {
	calls   atomic.Int32
	release chan struct{} // nil 时立即返回
	out     service.DrawOutcome
	err     error
}

func (f *fakeEngine) CurrentWindow() lotto.WindowKey {
	return lotto.WindowAt(time.Date(2025, 10, 17, 8, 5, 0, 0, time.UTC), time.Minute)
}

func (f *fakeEngine) RunDraw(ctx context.Context, key lotto.WindowKey) (service.DrawOutcome, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	out := f.out
	out.WindowKey = key.String()
	return out, f.err
}

type fakeLeader struct {
	ok       bool
	err      error
	released atomic.Int32
}

func (l *fakeLeader) TryAcquire(context.Context) (bool, error) { return l.ok, l.err }
func (l *fakeLeader) Release(context.Context) (bool, error) {
	l.released.Add(1)
	return true, nil
}

func TestSchedulerTick(t *testing.T) {
	t.Run("settled", func(t *testing.T) {
		e := &fakeEngine{out: service.DrawOutcome{Outcome: service.OutcomeSettled, ResultID: "r1"}}
		r := NewScheduler(e, nil, time.Minute).Tick(context.Background())
		if !r.Success || r.ResultID != "r1" || r.WindowKey != "2025-10-17-08-05" {
			t.Fatalf("unexpected result %+v", r)
		}
	})
	t.Run("failure is reported not retried", func(t *testing.T) {
		e := &fakeEngine{err: errors.New("boom")}
		r := NewScheduler(e, nil, time.Minute).Tick(context.Background())
		if r.Success || r.Error == "" {
			t.Fatalf("unexpected result %+v", r)
		}
		if e.calls.Load() != 1 {
			t.Fatalf("calls = %d, want 1", e.calls.Load())
		}
	})
	t.Run("not leader", func(t *testing.T) {
		e := &fakeEngine{}
		l := &fakeLeader{ok: false}
		NewScheduler(e, l, time.Minute).Tick(context.Background())
		if e.calls.Load() != 0 {
			t.Fatalf("follower must not draw")
		}
	})
	t.Run("leader releases lease", func(t *testing.T) {
		e := &fakeEngine{out: service.DrawOutcome{Outcome: service.OutcomeSettled}}
		l := &fakeLeader{ok: true}
		NewScheduler(e, l, time.Minute).Tick(context.Background())
		if e.calls.Load() != 1 || l.released.Load() != 1 {
			t.Fatalf("calls=%d released=%d", e.calls.Load(), l.released.Load())
		}
	})
	t.Run("lease error still draws", func(t *testing.T) {
		e := &fakeEngine{out: service.DrawOutcome{Outcome: service.OutcomeSettled}}
		l := &fakeLeader{err: errors.New("redis down")}
		NewScheduler(e, l, time.Minute).Tick(context.Background())
		if e.calls.Load() != 1 {
			t.Fatalf("calls = %d, want 1", e.calls.Load())
		}
	})
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	e := &fakeEngine{release: make(chan struct{}), out: service.DrawOutcome{Outcome: service.OutcomeSettled}}
	s := NewScheduler(e, nil, time.Minute)
	s.ticks = make(chan time.Time)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	s.Start(ctx, &wg)

	s.ticks <- time.Now()
	waitFor(t, func() bool { return e.calls.Load() == 1 })
	// 第一次开奖尚未结束，这两次触发都被跳过
	s.ticks <- time.Now()
	s.ticks <- time.Now()
	if got := e.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 while draw is running", got)
	}

	close(e.release)
	waitFor(t, func() bool { return !s.running.Load() })
	s.ticks <- time.Now()
	waitFor(t, func() bool { return e.calls.Load() == 2 })

	cancel()
	wg.Wait()
}

func TestUntilNextBoundary(t *testing.T) {
	s := NewScheduler(&fakeEngine{}, nil, time.Minute)
	s.now = func() time.Time { return time.Date(2025, 10, 17, 8, 5, 40, 0, time.UTC) }
	if got := s.untilNextBoundary(); got != 20*time.Second {
		t.Fatalf("untilNextBoundary = %s, want 20s", got)
	}
	s.now = func() time.Time { return time.Date(2025, 10, 17, 8, 5, 0, 0, time.UTC) }
	if got := s.untilNextBoundary(); got != time.Minute {
		t.Fatalf("untilNextBoundary on boundary = %s, want 1m", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeOutbox struct {
	rows   []model.Outbox
	sent   []int64
	failed map[int64]string
}

func (f *fakeOutbox) ListOutboxPending(_ context.Context, limit int) ([]model.Outbox, error) {
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeOutbox) MarkOutboxSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutbox) MarkOutboxFailed(_ context.Context, id int64, msg string) error {
	if f.failed == nil {
		f.failed = map[int64]string{}
	}
	f.failed[id] = msg
	return nil
}

type fakePublisher struct {
	failKey string
	topics  []string
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	if key == p.failKey {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func TestDispatchOutbox(t *testing.T) {
	src := &fakeOutbox{rows: []model.Outbox{
		{ID: 1, Topic: model.TopicDrawSettled, BizKey: "2025-10-17-08-05", Payload: `{}`},
		{ID: 2, Topic: model.TopicDrawSettled, BizKey: "bad", Payload: `{}`},
		{ID: 3, Topic: model.TopicDrawSettled, BizKey: "2025-10-17-08-06", Payload: `{}`},
	}}
	pub := &fakePublisher{failKey: "bad"}
	opts := OutboxOptions{BatchSize: 10, TopicOf: func(string) string { return "lotto_draw_settled" }}

	sent, failed := DispatchOutbox(context.Background(), src, pub, opts)
	if sent != 2 || failed != 1 {
		t.Fatalf("sent=%d failed=%d", sent, failed)
	}
	if len(src.sent) != 2 || src.sent[0] != 1 || src.sent[1] != 3 {
		t.Fatalf("sent ids = %v", src.sent)
	}
	if _, ok := src.failed[2]; !ok {
		t.Fatalf("row 2 not marked failed: %v", src.failed)
	}
	for _, tp := range pub.topics {
		if tp != "lotto_draw_settled" {
			t.Fatalf("topic mapping not applied: %s", tp)
		}
	}
}
