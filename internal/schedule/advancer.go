// Package schedule computes occurrence dates for recurring obligations.
//
// This file implements the Strategy Pattern for schedule advancement.
// Each frequency type (daily, weekly, biweekly, monthly, quarterly,
// yearly) has its own advancer that encapsulates the calendar rules for
// stepping a schedule forward one occurrence.

package schedule

import (
	"time"

	"cadenza/internal/core"
)

// Anchors carries the optional calendar constraints of a recurring
// schedule. Zero means unset. DayOfWeek is deliberately absent: weekly
// and biweekly schedules advance by a fixed step from the last
// occurrence, so the day-of-week anchor is display-only.
type Anchors struct {
	DayOfMonth  int // 1-31; clamped to the target month's length
	MonthOfYear int // 1-12; used by yearly schedules
}

// Advancer is the strategy interface for computing the next occurrence
// of a recurring schedule. Implementations are pure functions of their
// inputs.
type Advancer interface {
	// Next returns the occurrence following from, honoring the anchors
	// relevant to the frequency.
	Next(from time.Time, anchors Anchors) time.Time
}

// DailyAdvancer steps one calendar day.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(from time.Time, _ Anchors) time.Time {
	return midnight(from).AddDate(0, 0, 1)
}

// WeeklyAdvancer steps a fixed seven days from the last occurrence.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(from time.Time, _ Anchors) time.Time {
	return midnight(from).AddDate(0, 0, 7)
}

// BiweeklyAdvancer steps a fixed fourteen days from the last occurrence.
type BiweeklyAdvancer struct{}

func (BiweeklyAdvancer) Next(from time.Time, _ Anchors) time.Time {
	return midnight(from).AddDate(0, 0, 14)
}

// MonthlyAdvancer steps one month, clamping the anchored day to the
// target month's length (day 31 lands on Feb 28/29).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(from time.Time, anchors Anchors) time.Time {
	return addMonthsClamped(from, 1, anchors.DayOfMonth)
}

// QuarterlyAdvancer steps three months with the same day clamping as
// monthly.
type QuarterlyAdvancer struct{}

func (QuarterlyAdvancer) Next(from time.Time, anchors Anchors) time.Time {
	return addMonthsClamped(from, 3, anchors.DayOfMonth)
}

// YearlyAdvancer steps one year, optionally snapping to the anchored
// month, then clamps the day.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(from time.Time, anchors Anchors) time.Time {
	year := from.Year() + 1
	month := from.Month()
	if anchors.MonthOfYear >= 1 && anchors.MonthOfYear <= 12 {
		month = time.Month(anchors.MonthOfYear)
	}
	day := from.Day()
	if anchors.DayOfMonth > 0 {
		day = anchors.DayOfMonth
	}
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// advancers maps frequencies to their corresponding strategies.
var advancers = map[core.Frequency]Advancer{
	core.Daily:     DailyAdvancer{},
	core.Weekly:    WeeklyAdvancer{},
	core.Biweekly:  BiweeklyAdvancer{},
	core.Monthly:   MonthlyAdvancer{},
	core.Quarterly: QuarterlyAdvancer{},
	core.Yearly:    YearlyAdvancer{},
}

// AdvancerFor returns the advancer for a frequency.
// Unknown frequencies fail with core.ErrInvalidFrequency; callers must
// not silently fall back to a default step.
func AdvancerFor(frequency core.Frequency) (Advancer, error) {
	adv, ok := advancers[frequency]
	if !ok {
		return nil, core.ErrInvalidFrequency
	}
	return adv, nil
}

// NextOccurrence computes the occurrence following from for the given
// frequency and anchors. It is a pure function: identical inputs always
// yield identical output.
func NextOccurrence(frequency core.Frequency, from time.Time, anchors Anchors) (time.Time, error) {
	adv, err := AdvancerFor(frequency)
	if err != nil {
		return time.Time{}, err
	}
	return adv.Next(from, anchors), nil
}

// InitialDue computes the first due date of a newly created schedule:
// a start date strictly in the future is itself the first occurrence,
// otherwise the schedule advances once from now.
func InitialDue(frequency core.Frequency, start core.Date, now time.Time, anchors Anchors) (time.Time, error) {
	if start.After(midnight(now)) {
		if err := frequency.Validate(); err != nil {
			return time.Time{}, err
		}
		return midnight(start.Time), nil
	}
	return NextOccurrence(frequency, now, anchors)
}

// AnchorsOf extracts the engine-relevant anchors from an obligation.
func AnchorsOf(o core.RecurringObligation) Anchors {
	var a Anchors
	if o.DayOfMonth != nil {
		a.DayOfMonth = *o.DayOfMonth
	}
	if o.MonthOfYear != nil {
		a.MonthOfYear = *o.MonthOfYear
	}
	return a
}

// addMonthsClamped advances by whole months without the day-overflow
// normalization of time.AddDate (Jan 31 + 1 month must not become
// Mar 2). The anchored day, or the source day when no anchor is set,
// is clamped to the target month's length.
func addMonthsClamped(from time.Time, months int, dayOfMonth int) time.Time {
	total := from.Year()*12 + int(from.Month()) - 1 + months
	year := total / 12
	month := time.Month(total%12 + 1)

	day := from.Day()
	if dayOfMonth > 0 {
		day = dayOfMonth
	}
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// midnight normalizes a timestamp to its calendar day at midnight UTC.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
