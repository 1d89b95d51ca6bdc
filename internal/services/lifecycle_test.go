package services

import (
	"errors"
	"testing"
	"time"

	"cadenza/internal/core"
)

func intPtr(v int) *int { return &v }

func rentObligation() core.RecurringObligation {
	return core.RecurringObligation{
		ID:        "ob-rent",
		Name:      "Rent",
		Amount:    core.Money{Cents: 95000},
		Direction: core.Debit,
		Category:  "Housing",
		AccountID: "acc-checking",
		Method:    "transfer",
		Frequency: core.Monthly,
		StartDate: core.NewDate(2024, 1, 1),
		NextDue:   core.NewDate(2024, 2, 20),
		IsActive:  true,
	}
}

func TestProcessObligation_AdvancesAndDrafts(t *testing.T) {
	ob := rentObligation()
	ob.DayOfMonth = intPtr(20)
	now := time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)

	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	if !outcome.Processed {
		t.Fatal("ProcessObligation() Processed = false, want true")
	}

	got := outcome.Obligation
	if want := core.NewDate(2024, 3, 20); !got.NextDue.Equal(want.Time) {
		t.Errorf("NextDue = %v, want %v", got.NextDue, want)
	}
	if want := core.NewDate(2024, 2, 20); !got.LastProcessed.Equal(want.Time) {
		t.Errorf("LastProcessed = %v, want %v", got.LastProcessed, want)
	}
	if !got.IsActive {
		t.Error("IsActive = false, want true")
	}

	draft := outcome.Draft
	if draft == nil {
		t.Fatal("Draft = nil, want transaction draft")
	}
	if draft.ObligationID != ob.ID {
		t.Errorf("Draft.ObligationID = %q, want %q", draft.ObligationID, ob.ID)
	}
	if draft.Payee != "Rent" || draft.Amount != ob.Amount || draft.Category != "Housing" {
		t.Errorf("Draft carries wrong obligation data: %+v", draft)
	}
	if draft.Status != core.DraftStatusPending {
		t.Errorf("Draft.Status = %q, want %q", draft.Status, core.DraftStatusPending)
	}
	if draft.ReceiptStatus != core.DraftReceiptNA {
		t.Errorf("Draft.ReceiptStatus = %q, want %q", draft.ReceiptStatus, core.DraftReceiptNA)
	}
	if want := core.NewDate(2024, 2, 20); !draft.Date.Equal(want.Time) {
		t.Errorf("Draft.Date = %v, want %v", draft.Date, want)
	}
}

func TestProcessObligation_EndsPastEndDate(t *testing.T) {
	ob := rentObligation()
	ob.EndDate = core.NewDate(2024, 3, 1)
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	// Next occurrence 2024-03-20 exceeds the end date, so the schedule ends.
	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	if !outcome.Processed {
		t.Fatal("Processed = false, want true (the due occurrence is still paid)")
	}

	got := outcome.Obligation
	if !got.NextDue.IsEmpty() {
		t.Errorf("NextDue = %v, want empty", got.NextDue)
	}
	if got.IsActive {
		t.Error("IsActive = true, want false")
	}
	if outcome.Draft == nil {
		t.Error("Draft = nil, want draft for the final occurrence")
	}
}

func TestProcessObligation_EndDateInclusive(t *testing.T) {
	ob := rentObligation()
	ob.EndDate = core.NewDate(2024, 3, 20)
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	got := outcome.Obligation
	if want := core.NewDate(2024, 3, 20); !got.NextDue.Equal(want.Time) {
		t.Errorf("NextDue = %v, want %v (end date is inclusive)", got.NextDue, want)
	}
	if !got.IsActive {
		t.Error("IsActive = false, want true")
	}
}

func TestProcessObligation_NoopWhenInactive(t *testing.T) {
	ob := rentObligation()
	ob.IsActive = false
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	if outcome.Processed {
		t.Error("Processed = true, want false")
	}
	if outcome.Draft != nil {
		t.Error("Draft != nil, want nil")
	}
	if outcome.Obligation != ob {
		t.Errorf("obligation changed: %+v", outcome.Obligation)
	}
}

func TestProcessObligation_NoopWithoutPendingOccurrence(t *testing.T) {
	ob := rentObligation()
	ob.NextDue = core.Date{}
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	if outcome.Processed || outcome.Draft != nil {
		t.Errorf("want no-op, got %+v", outcome)
	}
}

func TestSkipObligation(t *testing.T) {
	ob := rentObligation()
	ob.DayOfMonth = intPtr(20)
	ob.LastProcessed = core.NewDate(2024, 1, 20)
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := SkipObligation(ob, now)
	if err != nil {
		t.Fatalf("SkipObligation() error = %v", err)
	}
	if !outcome.Processed {
		t.Fatal("Processed = false, want true")
	}
	if outcome.Draft != nil {
		t.Error("Draft != nil, want nil for skip")
	}

	got := outcome.Obligation
	if want := core.NewDate(2024, 3, 20); !got.NextDue.Equal(want.Time) {
		t.Errorf("NextDue = %v, want %v", got.NextDue, want)
	}
	if want := core.NewDate(2024, 1, 20); !got.LastProcessed.Equal(want.Time) {
		t.Errorf("LastProcessed = %v, want unchanged %v", got.LastProcessed, want)
	}
}

func TestSkipObligation_EndsPastEndDate(t *testing.T) {
	ob := rentObligation()
	ob.EndDate = core.NewDate(2024, 3, 1)
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	outcome, err := SkipObligation(ob, now)
	if err != nil {
		t.Fatalf("SkipObligation() error = %v", err)
	}
	got := outcome.Obligation
	if !got.NextDue.IsEmpty() || got.IsActive {
		t.Errorf("want ended schedule, got NextDue=%v IsActive=%v", got.NextDue, got.IsActive)
	}
}

func TestDeactivateObligation(t *testing.T) {
	ob := rentObligation()
	ob.LastProcessed = core.NewDate(2024, 1, 20)

	got := DeactivateObligation(ob)
	if got.IsActive {
		t.Error("IsActive = true, want false")
	}
	if !got.NextDue.IsEmpty() {
		t.Errorf("NextDue = %v, want empty", got.NextDue)
	}
	if want := core.NewDate(2024, 1, 20); !got.LastProcessed.Equal(want.Time) {
		t.Errorf("LastProcessed = %v, want unchanged %v", got.LastProcessed, want)
	}

	// Processing a deactivated record is a no-op, not an error.
	outcome, err := ProcessObligation(got, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessObligation() error = %v", err)
	}
	if outcome.Processed {
		t.Error("Processed = true, want false for deactivated obligation")
	}
}

func TestRescheduleObligation(t *testing.T) {
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	t.Run("recomputes from edited anchors", func(t *testing.T) {
		ob := rentObligation()
		ob.DayOfMonth = intPtr(5)

		got, err := RescheduleObligation(ob, now)
		if err != nil {
			t.Fatalf("RescheduleObligation() error = %v", err)
		}
		if want := core.NewDate(2024, 3, 5); !got.NextDue.Equal(want.Time) {
			t.Errorf("NextDue = %v, want %v", got.NextDue, want)
		}
	})

	t.Run("future start date becomes the next due", func(t *testing.T) {
		ob := rentObligation()
		ob.StartDate = core.NewDate(2024, 4, 1)

		got, err := RescheduleObligation(ob, now)
		if err != nil {
			t.Fatalf("RescheduleObligation() error = %v", err)
		}
		if want := core.NewDate(2024, 4, 1); !got.NextDue.Equal(want.Time) {
			t.Errorf("NextDue = %v, want %v", got.NextDue, want)
		}
	})

	t.Run("ends when recomputed due passes end date", func(t *testing.T) {
		ob := rentObligation()
		ob.EndDate = core.NewDate(2024, 3, 1)

		got, err := RescheduleObligation(ob, now)
		if err != nil {
			t.Fatalf("RescheduleObligation() error = %v", err)
		}
		if !got.NextDue.IsEmpty() || got.IsActive {
			t.Errorf("want ended schedule, got NextDue=%v IsActive=%v", got.NextDue, got.IsActive)
		}
	})

	t.Run("invalid edit leaves the record unchanged", func(t *testing.T) {
		ob := rentObligation()
		ob.DayOfMonth = intPtr(40)

		got, err := RescheduleObligation(ob, now)
		if !errors.Is(err, core.ErrInvalidAnchor) {
			t.Fatalf("RescheduleObligation() error = %v, want ErrInvalidAnchor", err)
		}
		if !got.NextDue.Equal(ob.NextDue.Time) {
			t.Errorf("NextDue = %v, want unchanged %v", got.NextDue, ob.NextDue)
		}
	})
}
