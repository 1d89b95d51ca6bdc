// Package worker posts processed transactions and attributes their
// spending to budgets, driven by AMQP messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cadenza/internal/amqp"
	"cadenza/internal/core"
	"cadenza/internal/services"
	"cadenza/internal/store"
)

// PostingWorker consumes processed-obligation messages: it marks the
// pending transaction as posted and records the spending against the
// matching budget.
type PostingWorker struct {
	ledger        store.TransactionLedger
	budgetService *services.BudgetService
}

func NewPostingWorker(ledger store.TransactionLedger, budgetService *services.BudgetService) *PostingWorker {
	return &PostingWorker{
		ledger:        ledger,
		budgetService: budgetService,
	}
}

// HandleProcessedMessage processes a single obligation-processed message
// from AMQP. Posting is idempotent at the ledger level: re-marking an
// already posted transaction is a harmless update, so redelivered
// messages only risk double spending attribution, which the caller
// accepts for the manual-correction workflow.
func (w *PostingWorker) HandleProcessedMessage(ctx context.Context, msg *amqp.ObligationProcessedMessage) error {
	slog.InfoContext(ctx, "Posting processed transaction",
		"transaction_id", msg.TransactionID,
		"obligation_id", msg.ObligationID)

	if err := w.ledger.MarkTransactionPosted(ctx, msg.TransactionID); err != nil {
		return fmt.Errorf("mark transaction posted: %w", err)
	}

	// Only debits consume budget allowance.
	if core.Direction(msg.Direction) != core.Debit {
		slog.InfoContext(ctx, "Credit transaction posted, no budget attribution",
			"transaction_id", msg.TransactionID)
		return nil
	}

	matched, err := w.budgetService.RecordSpending(ctx, msg.Category, core.Money{Cents: msg.AmountCents})
	if err != nil {
		return fmt.Errorf("record spending: %w", err)
	}

	slog.InfoContext(ctx, "Transaction posted",
		"transaction_id", msg.TransactionID,
		"category", msg.Category,
		"budget_matched", matched)

	return nil
}
