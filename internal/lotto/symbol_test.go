package lotto

import (
	"errors"
	"testing"
)

type seqIntner struct{ seq []int }

func (s *seqIntner) Intn(n int) int {
	v := s.seq[0] % n
	s.seq = append(s.seq[1:], s.seq[0])
	return v
}

func TestNewSymbolPool(t *testing.T) {
	t.Run("default catalog", func(t *testing.T) {
		p, err := NewSymbolPool(DefaultCatalog, nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.Size() != 25 {
			t.Fatalf("size = %d", p.Size())
		}
	})
	t.Run("dedupe and trim", func(t *testing.T) {
		p, err := NewSymbolPool([]Symbol{"A", " A ", "", "B", "A"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.Size() != 2 || !p.Contains("A") || !p.Contains("B") || p.Contains("") {
			t.Fatalf("catalog = %v", p.Catalog())
		}
	})
	t.Run("empty", func(t *testing.T) {
		if _, err := NewSymbolPool([]Symbol{" ", ""}, nil); !errors.Is(err, ErrEmptyCatalog) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSymbolPoolDraw(t *testing.T) {
	p, _ := NewSymbolPool([]Symbol{"A", "B", "C"}, &seqIntner{seq: []int{2, 0, 1, 1}})
	got := p.Draw(TicketSize)
	want := []Symbol{"C", "A", "B", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Draw = %v, want %v", got, want)
		}
	}
	if p.Draw(0) != nil {
		t.Fatal("Draw(0) should be nil")
	}

	rp, _ := NewSymbolPool(DefaultCatalog, nil)
	for i := 0; i < 200; i++ {
		for _, s := range rp.Draw(TicketSize) {
			if !rp.Contains(s) {
				t.Fatalf("drawn symbol %q outside catalog", s)
			}
		}
	}
}

func TestParseCatalog(t *testing.T) {
	if got := ParseCatalog(nil); len(got) != len(DefaultCatalog) {
		t.Fatalf("len = %d", len(got))
	}
	if got := ParseCatalog([]string{"x", "y"}); len(got) != 2 || got[1] != "y" {
		t.Fatalf("got %v", got)
	}
}

func TestIsRealOwner(t *testing.T) {
	cases := map[string]bool{
		"":          false,
		"  ":        false,
		"anonymous": false,
		"Temp":      false,
		"user-1":    true,
	}
	for owner, want := range cases {
		if got := IsRealOwner(owner, nil); got != want {
			t.Errorf("IsRealOwner(%q) = %v, want %v", owner, got, want)
		}
	}
	if IsRealOwner("guest", []string{"guest"}) {
		t.Error("configured anonymous owner should not be real")
	}
}

func TestTicketWellFormed(t *testing.T) {
	if !(Ticket{Numbers: win}).WellFormed() {
		t.Fatal("want well formed")
	}
	if (Ticket{Numbers: []Symbol{"A", "", "B", "C"}}).WellFormed() {
		t.Fatal("empty symbol should be malformed")
	}
	if (Ticket{}).WellFormed() {
		t.Fatal("no numbers should be malformed")
	}
}
