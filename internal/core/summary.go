package core

// BudgetProgress is a compact read-only summary of one budget's
// consumption within its current period.
//
// Percentage is clamped to 100 for progress-bar rendering;
// IsOverBudget is computed from the unclamped ratio so genuine
// overspend is flagged even past 100%.
type BudgetProgress struct {
	BudgetID      string
	Name          string
	Category      string
	Percentage    float64
	Remaining     Money // Amount - Spent; may be negative
	IsOverBudget  bool
	AlertReached  bool // spent percentage reached AlertThreshold
	DaysRemaining int  // days left in the current period window
}

// UpcomingObligation is one row of the due-soon projection.
//
// DaysUntilDue is clamped to a minimum of 0 ("due now"); RawDays keeps
// the unclamped delta so callers can distinguish truly overdue items.
type UpcomingObligation struct {
	Obligation   RecurringObligation
	DueDate      Date
	DaysUntilDue int
	RawDays      int
}
