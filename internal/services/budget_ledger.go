package services

import (
	"fmt"
	"time"

	"cadenza/internal/core"
)

// PeriodKey identifies the accounting window containing now, e.g.
// "2024-03" for monthly, "2024-W05" for weekly (ISO week),
// "2024-Q1" for quarterly and "2024" for yearly. Budgets store the key
// of their last reset so ResetPeriod stays a no-op when invoked twice
// within the same window.
func PeriodKey(period core.Period, now time.Time) string {
	switch period {
	case core.PeriodWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case core.PeriodQuarterly:
		quarter := (int(now.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", now.Year(), quarter)
	case core.PeriodYearly:
		return fmt.Sprintf("%d", now.Year())
	default:
		return now.Format("2006-01")
	}
}

// periodEnd returns midnight of the last calendar day of the window
// containing now. Weeks terminate on Sunday.
func periodEnd(period core.Period, now time.Time) time.Time {
	year, month, day := now.Date()
	switch period {
	case core.PeriodWeekly:
		daysToSunday := (7 - int(now.Weekday())) % 7
		return time.Date(year, month, day+daysToSunday, 0, 0, 0, 0, time.UTC)
	case core.PeriodQuarterly:
		endMonth := time.Month(((int(month)-1)/3+1)*3 + 1)
		return time.Date(year, endMonth, 0, 0, 0, 0, 0, time.UTC)
	case core.PeriodYearly:
		return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	default: // monthly
		return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	}
}

// DaysRemaining reports how many days are left until the end of the
// current weekly/monthly/quarterly/yearly window, floored at 0.
func DaysRemaining(period core.Period, now time.Time) int {
	days := ceilDays(periodEnd(period, now).Sub(now))
	if days < 0 {
		return 0
	}
	return days
}

// Progress summarizes one budget's consumption. The displayed
// percentage is clamped to 100, but the over-budget flag uses the
// unclamped ratio so overspend past 100% is still reported.
func Progress(b core.Budget, now time.Time) core.BudgetProgress {
	var pct float64
	if b.Amount.Cents > 0 {
		pct = float64(b.SpentCents) / float64(b.Amount.Cents) * 100
	}
	display := pct
	if display > 100 {
		display = 100
	}

	return core.BudgetProgress{
		BudgetID:      b.ID,
		Name:          b.Name,
		Category:      b.Category,
		Percentage:    display,
		Remaining:     core.Money{Cents: b.Amount.Cents - b.SpentCents},
		IsOverBudget:  b.SpentCents > b.Amount.Cents,
		AlertReached:  b.AlertThreshold > 0 && pct >= float64(b.AlertThreshold),
		DaysRemaining: DaysRemaining(b.Period, now),
	}
}

// ResetPeriod closes the budget's accounting window at now.
//
// With rollover enabled and unused allowance left, the unused amount is
// banked as a negative spent balance consumed by the next period's
// spending; otherwise spent resets to 0. The stored period key makes a
// repeated reset within the same window a no-op, so rollover can never
// double-bank.
func ResetPeriod(b core.Budget, now time.Time) core.Budget {
	key := PeriodKey(b.Period, now)
	if b.LastReset == key {
		return b
	}

	updated := b
	if b.Rollover && b.SpentCents < b.Amount.Cents {
		updated.SpentCents = b.SpentCents - b.Amount.Cents
	} else {
		updated.SpentCents = 0
	}
	updated.LastReset = key
	return updated
}

// ApplySpending adds amount to the spent balance of the first active
// budget whose category matches. Single attribution is intentional:
// budgets sharing a category are never both credited. The returned
// index is -1 when nothing matched.
func ApplySpending(budgets []core.Budget, category string, amount core.Money) ([]core.Budget, int, error) {
	if err := amount.Validate(); err != nil {
		return budgets, -1, err
	}

	for i := range budgets {
		if !budgets[i].IsActive || budgets[i].Category != category {
			continue
		}
		updated := make([]core.Budget, len(budgets))
		copy(updated, budgets)
		updated[i].SpentCents += amount.Cents
		return updated, i, nil
	}
	return budgets, -1, nil
}
