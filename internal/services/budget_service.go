package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cadenza/internal/core"
	"cadenza/internal/store"
)

// BudgetService orchestrates budget CRUD, period rollovers and spending
// attribution on top of the backing store.
type BudgetService struct {
	budgets store.BudgetStore
}

func NewBudgetService(budgets store.BudgetStore) *BudgetService {
	return &BudgetService{budgets: budgets}
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.budgets.ListBudgets(ctx)
}

func (s *BudgetService) Get(ctx context.Context, id string) (core.Budget, error) {
	return s.budgets.GetBudget(ctx, id)
}

// Create saves a new budget. Its first accounting window opens at now,
// so LastReset is seeded with the current period key.
func (s *BudgetService) Create(ctx context.Context, b core.Budget, now time.Time) (core.Budget, error) {
	b.IsActive = true
	b.SpentCents = 0
	b.LastReset = PeriodKey(b.Period, now)

	saved, err := s.budgets.AddBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"id", saved.ID,
		"name", saved.Name,
		"category", saved.Category)

	return saved, nil
}

// Update replaces a budget's definition, preserving the running spent
// balance and reset bookkeeping.
func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	current, err := s.budgets.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.SpentCents = current.SpentCents
	b.LastReset = current.LastReset

	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.budgets.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	return s.budgets.DeleteBudget(ctx, id)
}

// ProgressAll reports consumption for every active budget.
func (s *BudgetService) ProgressAll(ctx context.Context, now time.Time) ([]core.BudgetProgress, error) {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		if !b.IsActive {
			continue
		}
		out = append(out, Progress(b, now))
	}
	return out, nil
}

// Reset closes one budget's accounting window at now. Calling it twice
// within the same period leaves the budget untouched.
func (s *BudgetService) Reset(ctx context.Context, id string, now time.Time) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}

	updated := ResetPeriod(b, now)
	if updated.LastReset == b.LastReset && updated.SpentCents == b.SpentCents {
		return b, nil
	}

	if err := s.budgets.UpdateBudget(ctx, updated); err != nil {
		return core.Budget{}, fmt.Errorf("persist budget reset: %w", err)
	}

	slog.InfoContext(ctx, "Budget period reset",
		"id", id,
		"period_key", updated.LastReset,
		"spent_cents", updated.SpentCents)

	return updated, nil
}

// ResetElapsedPeriods rolls every active budget whose stored period key
// no longer matches the window containing now. The scheduler invokes
// this on each tick; the period-key guard makes over-invocation safe.
func (s *BudgetService) ResetElapsedPeriods(ctx context.Context, now time.Time) (int, error) {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	resetCount := 0
	for _, b := range budgets {
		if !b.IsActive || b.LastReset == PeriodKey(b.Period, now) {
			continue
		}

		updated := ResetPeriod(b, now)
		if err := s.budgets.UpdateBudget(ctx, updated); err != nil {
			slog.ErrorContext(ctx, "Failed to reset budget period",
				"id", b.ID, "error", err)
			continue
		}

		resetCount++
		slog.InfoContext(ctx, "Budget period rolled over",
			"id", b.ID,
			"name", b.Name,
			"period_key", updated.LastReset,
			"spent_cents", updated.SpentCents)
	}
	return resetCount, nil
}

// RecordSpending attributes a debit amount to the first active budget
// matching the category. Unmatched spending is not an error.
func (s *BudgetService) RecordSpending(ctx context.Context, category string, amount core.Money) (bool, error) {
	budgets, err := s.budgets.ListBudgets(ctx)
	if err != nil {
		return false, fmt.Errorf("list budgets: %w", err)
	}

	updated, idx, err := ApplySpending(budgets, category, amount)
	if err != nil {
		return false, err
	}
	if idx < 0 {
		slog.InfoContext(ctx, "No budget matched spending",
			"category", category,
			"amount_cents", amount.Cents)
		return false, nil
	}

	if err := s.budgets.UpdateBudget(ctx, updated[idx]); err != nil {
		return false, fmt.Errorf("persist budget spending: %w", err)
	}

	slog.InfoContext(ctx, "Spending attributed to budget",
		"budget_id", updated[idx].ID,
		"category", category,
		"amount_cents", amount.Cents,
		"spent_cents", updated[idx].SpentCents)

	return true, nil
}
