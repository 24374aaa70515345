package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lotto-server/internal/common/response"
	"lotto-server/internal/lotto"
	"lotto-server/internal/middleware"
	"lotto-server/internal/service"
	"lotto-server/internal/store"

	"github.com/beego/beego/v2/server/web"
)

var testNow = time.Date(2025, 10, 17, 8, 5, 10, 0, time.UTC)

type fixedIntner struct{ i int }

func (f *fixedIntner) Intn(n int) int {
	v := f.i % n
	f.i++
	return v
}

func newTestServer(t *testing.T) (*web.ControllerRegister, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	pool, err := lotto.NewSymbolPool(lotto.DefaultCatalog, &fixedIntner{})
	if err != nil {
		t.Fatal(err)
	}
	now := func() time.Time { return testNow }
	eng := service.NewEngine(s, pool, nil, service.EngineOptions{Now: now, EvalWorkers: 2})
	Init(Deps{
		Engine:       eng,
		Query:        service.NewQueryService(s, nil),
		Tickets:      s,
		Retention:    24 * time.Hour,
		CleanupBatch: 500,
		Now:          now,
	})

	r := web.NewControllerRegister()
	if err := r.InsertFilter("/*", web.BeforeRouter, middleware.RequestIDFilter); err != nil {
		t.Fatal(err)
	}
	r.Add("/api/draw/trigger", &DrawController{}, web.WithRouterMethods(&DrawController{}, "post:Trigger"))
	r.Add("/api/draw/result/:window_key", &DrawController{}, web.WithRouterMethods(&DrawController{}, "get:Result"))
	r.Add("/api/draw/results", &DrawController{}, web.WithRouterMethods(&DrawController{}, "get:Results"))
	r.Add("/api/game_state", &GameController{}, web.WithRouterMethods(&GameController{}, "get:State"))
	r.Add("/api/tickets/cleanup", &TicketController{}, web.WithRouterMethods(&TicketController{}, "post:Cleanup"))
	return r, s
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp response.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, resp
}

func TestDrawEndpoints(t *testing.T) {
	h, s := newTestServer(t)
	err := s.InsertTicket(context.Background(), lotto.Ticket{
		ID: "t1", Numbers: []lotto.Symbol{"🌟", "🎈", "🎨", "🌈"}, OwnerKey: "u1", CreatedAt: testNow.Add(-time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("game state before any draw", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/game_state", "")
		if rec.Code != http.StatusNotFound || resp.Code != response.CodeNotFound {
			t.Fatalf("status=%d code=%d", rec.Code, resp.Code)
		}
	})

	var resultID string
	t.Run("trigger current window", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/draw/trigger", `{}`)
		if rec.Code != http.StatusOK || resp.Code != response.CodeSuccess {
			t.Fatalf("status=%d resp=%+v", rec.Code, resp)
		}
		data := resp.Data.(map[string]any)
		if data["success"] != true || data["alreadyProcessed"] != false || data["windowKey"] != "2025-10-17-08-05" {
			t.Fatalf("data = %v", data)
		}
		resultID, _ = data["resultId"].(string)
		if resultID == "" {
			t.Fatal("missing resultId")
		}
		if resp.TraceID == "" || rec.Header().Get("X-Request-Id") != resp.TraceID {
			t.Fatalf("trace id not propagated: %q vs %q", resp.TraceID, rec.Header().Get("X-Request-Id"))
		}
	})

	t.Run("trigger again is already processed", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/draw/trigger", `{"window_key":"2025-10-17-08-05"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		data := resp.Data.(map[string]any)
		if data["alreadyProcessed"] != true || data["resultId"] != resultID {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("trigger rejects malformed window", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/draw/trigger", `{"window_key":"yesterday"}`)
		if rec.Code != http.StatusBadRequest || resp.Code != response.CodeInvalidWindow {
			t.Fatalf("status=%d code=%d", rec.Code, resp.Code)
		}
	})

	t.Run("trigger rejects window not yet started", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/draw/trigger", `{"window_key":"2025-10-17-08-06"}`)
		if rec.Code != http.StatusBadRequest || resp.Code != response.CodeInvalidWindow {
			t.Fatalf("status=%d code=%d", rec.Code, resp.Code)
		}
	})

	t.Run("result by window", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/draw/result/2025-10-17-08-05", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		data := resp.Data.(map[string]any)
		if data["id"] != resultID || data["total_tickets"] != float64(1) {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("result for unsettled window", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/draw/result/2025-10-17-08-06", "")
		if rec.Code != http.StatusNotFound || resp.Code != response.CodeNotFound {
			t.Fatalf("status=%d code=%d", rec.Code, resp.Code)
		}
	})

	t.Run("latest results", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/draw/results?limit=500", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if list := resp.Data.([]any); len(list) != 1 {
			t.Fatalf("results = %v", list)
		}
	})

	t.Run("game state after draw", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodGet, "/api/game_state", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		if data := resp.Data.(map[string]any); data["window_key"] != "2025-10-17-08-05" {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("trigger accepts past window", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/draw/trigger", `{"window_key":"2025-10-17-08-04"}`)
		if rec.Code != http.StatusOK || resp.Code != response.CodeSuccess {
			t.Fatalf("status=%d resp=%+v", rec.Code, resp)
		}
	})
}

func TestCleanupEndpoint(t *testing.T) {
	h, s := newTestServer(t)
	ctx := context.Background()
	nums := []lotto.Symbol{"🌟", "🎈", "🎨", "🌈"}
	for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		err := s.InsertTicket(ctx, lotto.Ticket{
			ID: string(rune('a' + i)), Numbers: nums, OwnerKey: "u", CreatedAt: testNow.Add(-age),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	t.Run("invalid batch", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/tickets/cleanup", `{"batch":501}`)
		if rec.Code != http.StatusBadRequest || resp.Code != response.CodeBadRequest {
			t.Fatalf("status=%d code=%d", rec.Code, resp.Code)
		}
	})

	t.Run("one ticket per batch", func(t *testing.T) {
		rec, resp := do(t, h, http.MethodPost, "/api/tickets/cleanup", `{"batch":1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d", rec.Code)
		}
		data := resp.Data.(map[string]any)
		if data["deleted"] != float64(1) || data["remaining"] != float64(1) {
			t.Fatalf("data = %v", data)
		}
	})

	t.Run("default retention", func(t *testing.T) {
		_, resp := do(t, h, http.MethodPost, "/api/tickets/cleanup", `{}`)
		data := resp.Data.(map[string]any)
		if data["deleted"] != float64(1) || data["remaining"] != float64(0) {
			t.Fatalf("data = %v", data)
		}
		if _, tickets := s.Counts(); tickets != 1 {
			t.Fatalf("tickets left = %d, want 1", tickets)
		}
	})
}
