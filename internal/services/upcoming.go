package services

import (
	"sort"
	"time"

	"cadenza/internal/core"
)

// Upcoming projects the due-soon list from a collection of obligations.
//
// Only active obligations with a pending occurrence inside the
// lookahead window are included. DaysUntilDue is the ceiling of the
// remaining time in days, clamped to 0 so an overdue item reads as
// "due now"; RawDays carries the unclamped delta for overdue
// indicators. The result is sorted by DaysUntilDue, ties broken by
// obligation name for deterministic output.
func Upcoming(obligations []core.RecurringObligation, now time.Time, lookaheadDays int) []core.UpcomingObligation {
	horizon := now.AddDate(0, 0, lookaheadDays)

	out := make([]core.UpcomingObligation, 0, len(obligations))
	for _, ob := range obligations {
		if !ob.IsActive || ob.NextDue.IsEmpty() {
			continue
		}
		if ob.NextDue.After(horizon) {
			continue
		}

		raw := ceilDays(ob.NextDue.Time.Sub(now))
		days := raw
		if days < 0 {
			days = 0
		}
		out = append(out, core.UpcomingObligation{
			Obligation:   ob,
			DueDate:      ob.NextDue,
			DaysUntilDue: days,
			RawDays:      raw,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysUntilDue != out[j].DaysUntilDue {
			return out[i].DaysUntilDue < out[j].DaysUntilDue
		}
		return out[i].Obligation.Name < out[j].Obligation.Name
	})

	return out
}

// ceilDays converts a duration to whole days, rounding up.
func ceilDays(d time.Duration) int {
	const day = 24 * time.Hour
	n := d / day
	if d%day > 0 {
		n++
	}
	return int(n)
}
