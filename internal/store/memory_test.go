package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"lotto-server/internal/lotto"
	"lotto-server/internal/state"
)

func acquire(t *testing.T, m *Memory, key, token string) {
	t.Helper()
	_, err := m.UpdateLock(context.Background(), key, func(cur LockRecord) (LockRecord, bool, error) {
		cur.State = state.StateInProgress
		cur.OwnerToken = token
		cur.StartedAt = time.Now().UTC()
		return cur, true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func settlement(id, key string) lotto.Settlement {
	return lotto.Settlement{
		ID:        id,
		WindowKey: key,
		CreatedAt: time.Now().UTC(),
		Winning:   []lotto.Symbol{"A", "B", "C", "D"},
		Tiers:     lotto.NewTierLists(),
	}
}

func TestMemoryCommitResult(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := "2025-01-01-00-00"

	if err := m.CommitResult(ctx, "tok", settlement("r0", key)); !errors.Is(err, ErrLockLost) {
		t.Fatalf("commit without lock: %v", err)
	}

	acquire(t, m, key, "tok")
	if err := m.CommitResult(ctx, "other", settlement("r1", key)); !errors.Is(err, ErrLockLost) {
		t.Fatalf("commit with wrong token: %v", err)
	}
	if err := m.CommitResult(ctx, "tok", settlement("r1", key)); err != nil {
		t.Fatal(err)
	}
	lock, _ := m.GetLock(ctx, key)
	if lock.State != state.StateCompleted || lock.ResultID != "r1" {
		t.Fatalf("lock = %+v", lock)
	}
	if err := m.CommitResult(ctx, "tok", settlement("r2", key)); !errors.Is(err, ErrLockLost) {
		t.Fatalf("second commit: %v", err)
	}
	got, err := m.FindByWindow(ctx, key)
	if err != nil || got.ID != "r1" {
		t.Fatalf("FindByWindow = %+v, %v", got, err)
	}
	if ev := m.Events(); len(ev) != 1 || ev[0].ResultID != "r1" || ev[0].WindowKey != key {
		t.Fatalf("events = %+v", ev)
	}
}

func TestMemoryFailLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := "2025-01-01-00-01"
	acquire(t, m, key, "tok")
	before, _ := m.GetLock(ctx, key)

	if err := m.FailLock(ctx, key, "nope", "boom"); !errors.Is(err, ErrLockLost) {
		t.Fatalf("FailLock wrong token: %v", err)
	}
	if err := m.FailLock(ctx, key, "tok", "boom"); err != nil {
		t.Fatal(err)
	}
	after, _ := m.GetLock(ctx, key)
	if after.State != state.StateFailed || after.Error != "boom" {
		t.Fatalf("after = %+v", after)
	}
	if !after.StartedAt.Equal(before.StartedAt) || after.OwnerToken != "tok" {
		t.Fatal("fail must merge, not replace the record")
	}
}

func TestMemoryTickets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		// 乱序插入
		at := base.Add(time.Duration([]int{3, 1, 2}[i]) * time.Hour)
		if err := m.InsertTicket(ctx, lotto.Ticket{ID: id, CreatedAt: at}); err != nil {
			t.Fatal(err)
		}
	}
	all, _ := m.ListTickets(ctx, time.Time{})
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("order = %v", all)
	}
	since, _ := m.ListTickets(ctx, base.Add(time.Hour))
	if len(since) != 2 {
		t.Fatalf("since = %d", len(since))
	}

	cutoff := base.Add(150 * time.Minute)
	if n, _ := m.CountTicketsBefore(ctx, cutoff); n != 2 {
		t.Fatalf("count = %d", n)
	}
	if n, _ := m.DeleteTicketsBefore(ctx, cutoff, 1); n != 1 {
		t.Fatalf("deleted = %d", n)
	}
	left, _ := m.ListTickets(ctx, time.Time{})
	if len(left) != 2 || left[0].ID != "b" {
		t.Fatalf("left = %v", left)
	}
}

func TestMemoryFindInRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	at := time.Date(2025, 1, 1, 10, 0, 30, 0, time.UTC)
	legacy := settlement("old", "")
	legacy.CreatedAt = at
	m.PutResult(legacy)

	w := lotto.WindowAt(at, time.Minute)
	got, err := m.FindInRange(ctx, w.Start(), w.End())
	if err != nil || got.ID != "old" {
		t.Fatalf("FindInRange = %+v, %v", got, err)
	}
	if _, err := m.FindInRange(ctx, w.End(), w.Next().End()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("next window: %v", err)
	}
}

func TestLockRecordSnapshot(t *testing.T) {
	if (LockRecord{}).Snapshot().Found {
		t.Fatal("absent record should not be found")
	}
	s := LockRecord{Found: true, State: "weird"}.Snapshot()
	if s.State != state.StateUninitialized {
		t.Fatalf("unknown state should read as uninitialized, got %s", s.State)
	}
}
