package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/lotto"
	"lotto-server/internal/store"
)

type fakeDrawer struct {
	out DrawOutcome
	err error
}

func (f fakeDrawer) RunDraw(context.Context, lotto.WindowKey) (DrawOutcome, error) { return f.out, f.err }

func TestTrigger(t *testing.T) {
	key := lotto.WindowAt(testNow, time.Minute)
	cases := []struct {
		name string
		d    fakeDrawer
		want TriggerResult
	}{
		{"settled", fakeDrawer{out: DrawOutcome{Outcome: OutcomeSettled, WindowKey: key.String(), ResultID: "r1"}},
			TriggerResult{Success: true, WindowKey: key.String(), ResultID: "r1"}},
		{"already", fakeDrawer{out: DrawOutcome{Outcome: OutcomeAlreadySettled, WindowKey: key.String(), ResultID: "r1"}},
			TriggerResult{Success: true, AlreadyProcessed: true, WindowKey: key.String(), ResultID: "r1"}},
		{"busy", fakeDrawer{out: DrawOutcome{Outcome: OutcomeBusy, WindowKey: key.String()}},
			TriggerResult{InProgress: true, WindowKey: key.String()}},
		{"error", fakeDrawer{err: errors.New("boom")},
			TriggerResult{WindowKey: key.String(), Error: "boom"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Trigger(context.Background(), tc.d, key, SourceCLI); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

type ctxDrawer struct{ got context.Context }

func (d *ctxDrawer) RunDraw(ctx context.Context, key lotto.WindowKey) (DrawOutcome, error) {
	d.got = ctx
	return DrawOutcome{Outcome: OutcomeBusy, WindowKey: key.String()}, nil
}

func TestTriggerTraceContext(t *testing.T) {
	key := lotto.WindowAt(testNow, time.Minute)

	t.Run("generated for scheduler", func(t *testing.T) {
		d := &ctxDrawer{}
		Trigger(context.Background(), d, key, SourceSchedule)
		if logger.TraceID(d.got) == "" || logger.Source(d.got) != SourceSchedule {
			t.Fatalf("trace=%q source=%q", logger.TraceID(d.got), logger.Source(d.got))
		}
	})

	t.Run("kept from request", func(t *testing.T) {
		d := &ctxDrawer{}
		Trigger(logger.WithTraceID(context.Background(), "req-1"), d, key, SourceHTTP)
		if logger.TraceID(d.got) != "req-1" || logger.Source(d.got) != SourceHTTP {
			t.Fatalf("trace=%q source=%q", logger.TraceID(d.got), logger.Source(d.got))
		}
	})
}

func TestCleanupOldTickets(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	for i := 0; i < 5; i++ {
		_ = s.InsertTicket(ctx, lotto.Ticket{ID: string(rune('a' + i)), CreatedAt: testNow.Add(-8 * 24 * time.Hour).Add(time.Duration(i) * time.Minute)})
	}
	_ = s.InsertTicket(ctx, lotto.Ticket{ID: "fresh", CreatedAt: testNow.Add(-time.Hour)})

	res, err := CleanupOldTickets(ctx, s, testNow, DefaultTicketRetention, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 3 || res.Remaining != 2 {
		t.Fatalf("res = %+v", res)
	}
	res, _ = CleanupOldTickets(ctx, s, testNow, DefaultTicketRetention, 0)
	if res.Deleted != 2 || res.Remaining != 0 {
		t.Fatalf("res = %+v", res)
	}
	left, _ := s.ListTickets(ctx, time.Time{})
	if len(left) != 1 || left[0].ID != "fresh" {
		t.Fatalf("left = %v", left)
	}

	if _, err := CleanupOldTickets(ctx, s, testNow, 0, 10); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryService(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	seedScenario(t, s)
	e := newEngine(t, s, nil)
	key := e.CurrentWindow()
	out, err := e.RunDraw(ctx, key)
	if err != nil {
		t.Fatal(err)
	}

	q := NewQueryService(s, nil)
	res, err := q.Result(ctx, key)
	if err != nil || res.ID != out.ResultID {
		t.Fatalf("res = %+v, %v", res, err)
	}
	if _, err := q.Result(ctx, key.Next()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	list, err := q.Latest(ctx, 500)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}
	gs, err := q.GameState(ctx)
	if err != nil || gs.WindowKey != key.String() {
		t.Fatalf("gs = %+v, %v", gs, err)
	}
}
