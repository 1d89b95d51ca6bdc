package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cadenza/internal/services"
	"cadenza/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	obligations := services.NewObligationService(st, st, nil)
	budgets := services.NewBudgetService(st)

	s := NewServer(":0", obligations, budgets, 30, nil)
	s.now = func() time.Time {
		return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	}
	t.Cleanup(func() {
		s.cacheJanitor.Stop()
		s.rateLimiter.Stop()
	})
	return s
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func validObligationBody() map[string]any {
	return map[string]any{
		"name":         "Rent",
		"amount":       "1200.00",
		"direction":    "debit",
		"category":     "Housing",
		"frequency":    "monthly",
		"day_of_month": 1,
		"start_date":   "2024-01-01",
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_CreateObligation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/obligations status = %d, body %s", rec.Code, rec.Body.String())
	}

	ob := decodeResponse[obligationJSON](t, rec)
	if ob.ID == "" {
		t.Error("response should include an id")
	}
	if ob.NextDue != "2024-02-01" {
		t.Errorf("next_due = %q, want %q", ob.NextDue, "2024-02-01")
	}
	if ob.AmountCents != 120000 {
		t.Errorf("amount_cents = %d, want 120000", ob.AmountCents)
	}
	if !ob.IsActive {
		t.Error("created obligation should be active")
	}
}

func TestServer_CreateObligation_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		mutate   func(map[string]any)
		wantCode int
	}{
		{
			name:     "unknown frequency",
			mutate:   func(b map[string]any) { b["frequency"] = "fortnightly" },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing name",
			mutate:   func(b map[string]any) { b["name"] = "" },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "anchor out of range",
			mutate:   func(b map[string]any) { b["day_of_month"] = 32 },
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "bad amount",
			mutate:   func(b map[string]any) { b["amount"] = "not-a-number" },
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad start date",
			mutate:   func(b map[string]any) { b["start_date"] = "01/01/2024" },
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validObligationBody()
			tt.mutate(body)
			rec := doRequest(t, s, http.MethodPost, "/api/obligations", body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/obligations", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestServer_GetObligation_NotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/obligations/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServer_ProcessObligation(t *testing.T) {
	s := newTestServer(t)

	created := decodeResponse[obligationJSON](t,
		doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody()))

	rec := doRequest(t, s, http.MethodPost, "/api/obligations/"+created.ID+"/process", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d, body %s", rec.Code, rec.Body.String())
	}

	result := decodeResponse[processResultJSON](t, rec)
	if !result.Processed {
		t.Error("processed = false, want true")
	}
	if result.Obligation.NextDue != "2024-02-01" {
		t.Errorf("next_due = %q, want %q", result.Obligation.NextDue, "2024-02-01")
	}
	if result.Obligation.LastProcessed != "2024-01-10" {
		t.Errorf("last_processed = %q, want %q", result.Obligation.LastProcessed, "2024-01-10")
	}
	if result.TransactionID == "" {
		t.Error("process response should include a transaction id")
	}
}

func TestServer_SkipObligation(t *testing.T) {
	s := newTestServer(t)

	created := decodeResponse[obligationJSON](t,
		doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody()))

	rec := doRequest(t, s, http.MethodPost, "/api/obligations/"+created.ID+"/skip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("skip status = %d, body %s", rec.Code, rec.Body.String())
	}

	result := decodeResponse[processResultJSON](t, rec)
	if !result.Processed {
		t.Error("processed = false, want true")
	}
	if result.Obligation.LastProcessed != "" {
		t.Errorf("last_processed = %q, want empty", result.Obligation.LastProcessed)
	}
}

func TestServer_UpcomingObligations(t *testing.T) {
	s := newTestServer(t)

	soon := validObligationBody()
	soon["name"] = "Soon"
	soon["start_date"] = "2024-01-12"
	if rec := doRequest(t, s, http.MethodPost, "/api/obligations", soon); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	later := validObligationBody()
	later["name"] = "Later"
	later["start_date"] = "2024-01-20"
	if rec := doRequest(t, s, http.MethodPost, "/api/obligations", later); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	distant := validObligationBody()
	distant["name"] = "Distant"
	distant["start_date"] = "2024-06-01"
	if rec := doRequest(t, s, http.MethodPost, "/api/obligations", distant); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/obligations/upcoming?days=14", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("upcoming status = %d, body %s", rec.Code, rec.Body.String())
	}

	upcoming := decodeResponse[[]upcomingJSON](t, rec)
	if len(upcoming) != 2 {
		t.Fatalf("upcoming returned %d entries, want 2", len(upcoming))
	}
	if upcoming[0].Obligation.Name != "Soon" || upcoming[1].Obligation.Name != "Later" {
		t.Errorf("upcoming order = [%s, %s], want [Soon, Later]",
			upcoming[0].Obligation.Name, upcoming[1].Obligation.Name)
	}
	if upcoming[0].DaysUntilDue != 2 || upcoming[0].RawDays != 2 {
		t.Errorf("Soon days = (%d, raw %d), want (2, raw 2)",
			upcoming[0].DaysUntilDue, upcoming[0].RawDays)
	}
	if upcoming[1].RawDays != 10 {
		t.Errorf("Later raw_days = %d, want 10", upcoming[1].RawDays)
	}

	t.Run("invalid days parameter", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/obligations/upcoming?days=0", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestServer_ObligationOccurrences(t *testing.T) {
	s := newTestServer(t)

	created := decodeResponse[obligationJSON](t,
		doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody()))

	rec := doRequest(t, s, http.MethodGet, "/api/obligations/"+created.ID+"/occurrences?count=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("occurrences status = %d, body %s", rec.Code, rec.Body.String())
	}

	dates := decodeResponse[[]string](t, rec)
	want := []string{"2024-02-01", "2024-03-01", "2024-04-01"}
	if len(dates) != len(want) {
		t.Fatalf("occurrences returned %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrences[%d] = %q, want %q", i, dates[i], want[i])
		}
	}

	t.Run("invalid count parameter", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/obligations/"+created.ID+"/occurrences?count=0", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestServer_DeactivateObligation(t *testing.T) {
	s := newTestServer(t)

	created := decodeResponse[obligationJSON](t,
		doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody()))

	rec := doRequest(t, s, http.MethodPost, "/api/obligations/"+created.ID+"/deactivate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, body %s", rec.Code, rec.Body.String())
	}

	ob := decodeResponse[obligationJSON](t, rec)
	if ob.IsActive {
		t.Error("is_active = true, want false")
	}
	if ob.NextDue != "" {
		t.Errorf("next_due = %q, want empty", ob.NextDue)
	}

	t.Run("processing afterwards is a no-op", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/obligations/"+created.ID+"/process", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("process status = %d", rec.Code)
		}
		result := decodeResponse[processResultJSON](t, rec)
		if result.Processed {
			t.Error("processed = true, want false after deactivation")
		}
	})

	t.Run("excluded from upcoming", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/obligations/upcoming?days=30", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("upcoming status = %d", rec.Code)
		}
		upcoming := decodeResponse[[]upcomingJSON](t, rec)
		if len(upcoming) != 0 {
			t.Errorf("upcoming returned %d entries, want 0", len(upcoming))
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/obligations/missing/deactivate", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestServer_BudgetLifecycle(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{
		"name":            "Groceries",
		"category":        "Food",
		"amount":          "500.00",
		"period":          "monthly",
		"rollover":        true,
		"alert_threshold": 80,
	}
	rec := doRequest(t, s, http.MethodPost, "/api/budgets", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/budgets status = %d, body %s", rec.Code, rec.Body.String())
	}
	budget := decodeResponse[budgetJSON](t, rec)
	if budget.LastReset != "2024-01" {
		t.Errorf("last_reset = %q, want %q", budget.LastReset, "2024-01")
	}

	t.Run("progress", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/budgets/progress", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("progress status = %d", rec.Code)
		}
		progress := decodeResponse[[]progressJSON](t, rec)
		if len(progress) != 1 {
			t.Fatalf("progress returned %d entries, want 1", len(progress))
		}
		if progress[0].RemainingCents != 50000 {
			t.Errorf("remaining_cents = %d, want 50000", progress[0].RemainingCents)
		}
		if progress[0].IsOverBudget {
			t.Error("is_over_budget = true, want false")
		}
	})

	t.Run("reset is a no-op within the same period", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/budgets/"+budget.ID+"/reset", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("reset status = %d", rec.Code)
		}
		after := decodeResponse[budgetJSON](t, rec)
		if after.SpentCents != 0 || after.LastReset != "2024-01" {
			t.Errorf("reset changed budget: spent=%d last_reset=%q", after.SpentCents, after.LastReset)
		}
	})

	t.Run("update preserves spent balance", func(t *testing.T) {
		body["amount"] = "600.00"
		rec := doRequest(t, s, http.MethodPut, "/api/budgets/"+budget.ID, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
		}
		updated := decodeResponse[budgetJSON](t, rec)
		if updated.AmountCents != 60000 {
			t.Errorf("amount_cents = %d, want 60000", updated.AmountCents)
		}
	})

	t.Run("deactivate via update", func(t *testing.T) {
		body["is_active"] = false
		rec := doRequest(t, s, http.MethodPut, "/api/budgets/"+budget.ID, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
		}
		updated := decodeResponse[budgetJSON](t, rec)
		if updated.IsActive {
			t.Error("is_active = true, want false")
		}

		rec = doRequest(t, s, http.MethodGet, "/api/budgets/progress", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("progress status = %d", rec.Code)
		}
		if progress := decodeResponse[[]progressJSON](t, rec); len(progress) != 0 {
			t.Errorf("progress returned %d entries, want 0 for inactive budget", len(progress))
		}

		body["is_active"] = true
		rec = doRequest(t, s, http.MethodPut, "/api/budgets/"+budget.ID, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("reactivate status = %d", rec.Code)
		}
		if updated := decodeResponse[budgetJSON](t, rec); !updated.IsActive {
			t.Error("is_active = false after reactivation, want true")
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodDelete, "/api/budgets/"+budget.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec = doRequest(t, s, http.MethodGet, "/api/budgets/"+budget.ID, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("get after delete status = %d, want 404", rec.Code)
		}
	})
}

func TestServer_DeleteObligation(t *testing.T) {
	s := newTestServer(t)

	created := decodeResponse[obligationJSON](t,
		doRequest(t, s, http.MethodPost, "/api/obligations", validObligationBody()))

	rec := doRequest(t, s, http.MethodDelete, "/api/obligations/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/obligations/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}
