package memory

import (
	"context"
	"errors"
	"testing"

	"cadenza/internal/core"
)

func testObligation() core.RecurringObligation {
	return core.RecurringObligation{
		Name:      "Gym",
		Amount:    core.Money{Cents: 2999},
		Direction: core.Debit,
		Category:  "Health",
		Frequency: core.Monthly,
		StartDate: core.NewDate(2024, 1, 1),
		NextDue:   core.NewDate(2024, 2, 1),
		IsActive:  true,
	}
}

func TestObligationCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	added, err := s.AddObligation(ctx, testObligation())
	if err != nil {
		t.Fatalf("AddObligation() error = %v", err)
	}
	if added.ID == "" {
		t.Fatal("AddObligation() assigned no id")
	}

	got, err := s.GetObligation(ctx, added.ID)
	if err != nil {
		t.Fatalf("GetObligation() error = %v", err)
	}
	if got.Name != "Gym" {
		t.Errorf("Name = %q, want Gym", got.Name)
	}

	got.Name = "Gym Plus"
	if err := s.UpdateObligation(ctx, got); err != nil {
		t.Fatalf("UpdateObligation() error = %v", err)
	}
	updated, _ := s.GetObligation(ctx, added.ID)
	if updated.Name != "Gym Plus" {
		t.Errorf("Name after update = %q, want Gym Plus", updated.Name)
	}

	list, err := s.ListObligations(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListObligations() = %d entries, err %v; want 1, nil", len(list), err)
	}

	if err := s.DeleteObligation(ctx, added.ID); err != nil {
		t.Fatalf("DeleteObligation() error = %v", err)
	}
	if _, err := s.GetObligation(ctx, added.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetObligation() after delete error = %v, want ErrNotFound", err)
	}
}

func TestAddObligationValidates(t *testing.T) {
	s := New()
	ob := testObligation()
	ob.Amount = core.Money{}
	if _, err := s.AddObligation(context.Background(), ob); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("AddObligation() error = %v, want ErrInvalidAmount", err)
	}
}

func TestTransactionLedger(t *testing.T) {
	s := New()
	ctx := context.Background()

	draft := core.TransactionDraft{
		ObligationID: "ob-1",
		Payee:        "Gym",
		Amount:       core.Money{Cents: 2999},
		Direction:    core.Debit,
		Category:     "Health",
		Date:         core.NewDate(2024, 2, 1),
		Status:       core.DraftStatusPending,
	}

	id, err := s.AppendTransaction(ctx, draft)
	if err != nil || id == "" {
		t.Fatalf("AppendTransaction() = %q, %v", id, err)
	}

	if err := s.MarkTransactionPosted(ctx, id); err != nil {
		t.Fatalf("MarkTransactionPosted() error = %v", err)
	}
	if status, ok := s.TransactionStatus(id); !ok || status != core.TransactionStatusPosted {
		t.Errorf("status = %q, want %q", status, core.TransactionStatusPosted)
	}

	if _, err := s.AppendTransaction(ctx, draft); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	n, err := s.DeleteTransactionsByObligation(ctx, "ob-1")
	if err != nil {
		t.Fatalf("DeleteTransactionsByObligation() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d transactions, want 2", n)
	}
}

func TestBudgetCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := core.Budget{
		Name:     "Groceries",
		Category: "Food",
		Amount:   core.Money{Cents: 50000},
		Period:   core.PeriodMonthly,
		IsActive: true,
	}
	added, err := s.AddBudget(ctx, b)
	if err != nil || added.ID == "" {
		t.Fatalf("AddBudget() = %+v, %v", added, err)
	}

	added.SpentCents = 1234
	if err := s.UpdateBudget(ctx, added); err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}
	got, err := s.GetBudget(ctx, added.ID)
	if err != nil || got.SpentCents != 1234 {
		t.Fatalf("GetBudget() = %+v, %v", got, err)
	}

	if err := s.DeleteBudget(ctx, added.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if _, err := s.GetBudget(ctx, added.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBudget() after delete error = %v, want ErrNotFound", err)
	}
}
