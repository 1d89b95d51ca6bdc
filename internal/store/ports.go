// Package store defines the persistence ports the scheduler core is
// wired to. The core never holds its own collection: callers load
// records, run the pure scheduling/ledger functions, and persist the
// returned state through these interfaces.
package store

import (
	"context"

	"cadenza/internal/core"
)

type (
	ObligationStore interface {
		ListObligations(ctx context.Context) ([]core.RecurringObligation, error)
		GetObligation(ctx context.Context, id string) (core.RecurringObligation, error)
		AddObligation(ctx context.Context, ob core.RecurringObligation) (core.RecurringObligation, error)
		UpdateObligation(ctx context.Context, ob core.RecurringObligation) error
		DeleteObligation(ctx context.Context, id string) error
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		AddBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
	}

	// TransactionLedger receives the drafts produced by processing an
	// obligation. It assigns ids and owns transaction persistence.
	TransactionLedger interface {
		AppendTransaction(ctx context.Context, draft core.TransactionDraft) (id string, err error)
		MarkTransactionPosted(ctx context.Context, id string) error
		// DeleteTransactionsByObligation bulk-removes the transactions an
		// obligation generated; used when the host unlinks a deleted
		// obligation's history.
		DeleteTransactionsByObligation(ctx context.Context, obligationID string) (int64, error)
	}
)
