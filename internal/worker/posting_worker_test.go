package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cadenza/internal/amqp"
	"cadenza/internal/core"
	"cadenza/internal/services"
	"cadenza/internal/store/memory"
)

func TestPostingWorker_HandleProcessedMessage(t *testing.T) {
	st := memory.New()
	budgetService := services.NewBudgetService(st)
	w := NewPostingWorker(st, budgetService)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	budget, err := budgetService.Create(ctx, core.Budget{
		Name:     "Housing",
		Category: "Housing",
		Amount:   core.Money{Cents: 200000},
		Period:   core.PeriodMonthly,
	}, now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	txID, err := st.AppendTransaction(ctx, core.TransactionDraft{
		ObligationID: "ob-1",
		Payee:        "Rent",
		Amount:       core.Money{Cents: 120000},
		Direction:    core.Debit,
		Category:     "Housing",
		Date:         core.DateOf(now),
		Status:       core.DraftStatusPending,
	})
	if err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	msg := amqp.NewObligationProcessedMessage(txID, "ob-1", "Housing", 120000, "debit")
	if err := w.HandleProcessedMessage(ctx, msg); err != nil {
		t.Fatalf("HandleProcessedMessage() error = %v", err)
	}

	status, ok := st.TransactionStatus(txID)
	if !ok {
		t.Fatal("transaction not found after posting")
	}
	if status != core.TransactionStatusPosted {
		t.Errorf("transaction status = %q, want %q", status, core.TransactionStatusPosted)
	}

	updated, err := st.GetBudget(ctx, budget.ID)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if updated.SpentCents != 120000 {
		t.Errorf("budget SpentCents = %d, want 120000", updated.SpentCents)
	}

	t.Run("credit skips budget attribution", func(t *testing.T) {
		creditID, err := st.AppendTransaction(ctx, core.TransactionDraft{
			ObligationID: "ob-2",
			Payee:        "Salary",
			Amount:       core.Money{Cents: 300000},
			Direction:    core.Credit,
			Category:     "Housing",
			Date:         core.DateOf(now),
			Status:       core.DraftStatusPending,
		})
		if err != nil {
			t.Fatalf("AppendTransaction() error = %v", err)
		}

		msg := amqp.NewObligationProcessedMessage(creditID, "ob-2", "Housing", 300000, "credit")
		if err := w.HandleProcessedMessage(ctx, msg); err != nil {
			t.Fatalf("HandleProcessedMessage() error = %v", err)
		}

		after, err := st.GetBudget(ctx, budget.ID)
		if err != nil {
			t.Fatalf("GetBudget() error = %v", err)
		}
		if after.SpentCents != 120000 {
			t.Errorf("budget SpentCents after credit = %d, want 120000", after.SpentCents)
		}
	})

	t.Run("unknown transaction is an error for requeue", func(t *testing.T) {
		msg := amqp.NewObligationProcessedMessage("missing", "ob-3", "Housing", 100, "debit")
		if err := w.HandleProcessedMessage(ctx, msg); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("HandleProcessedMessage() error = %v, want ErrNotFound", err)
		}
	})
}
