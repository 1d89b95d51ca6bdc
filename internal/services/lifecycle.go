// Package services provides business logic and orchestration services
// for recurring obligations and budgets.
package services

import (
	"time"

	"cadenza/internal/core"
	"cadenza/internal/schedule"
)

// ProcessOutcome is the result of processing or skipping one obligation.
// Processed is false when the operation was a no-op (inactive record or
// no pending occurrence) — a reachable UI race, not an error. Draft is
// non-nil only for a processed obligation; the caller is responsible
// for handing it to the transaction ledger.
type ProcessOutcome struct {
	Obligation core.RecurringObligation
	Draft      *core.TransactionDraft
	Processed  bool

	// TransactionID is filled in once the draft has been appended to
	// the ledger.
	TransactionID string
}

// ProcessObligation marks one occurrence of an obligation as paid at now.
//
// It returns the obligation with its schedule advanced (or ended when
// the next occurrence would fall past EndDate) together with a
// transaction draft dated now. Processing an inactive obligation, or
// one with no pending occurrence, returns the record unchanged with
// Processed=false.
func ProcessObligation(ob core.RecurringObligation, now time.Time) (ProcessOutcome, error) {
	if !ob.IsActive || ob.NextDue.IsEmpty() {
		return ProcessOutcome{Obligation: ob}, nil
	}

	advanced, err := advanceSchedule(ob, now)
	if err != nil {
		return ProcessOutcome{Obligation: ob}, err
	}
	advanced.LastProcessed = core.DateOf(now)

	draft := &core.TransactionDraft{
		ObligationID:  ob.ID,
		Payee:         ob.Name,
		Amount:        ob.Amount,
		Direction:     ob.Direction,
		Category:      ob.Category,
		AccountID:     ob.AccountID,
		ToAccount:     ob.ToAccount,
		Method:        ob.Method,
		Date:          core.DateOf(now),
		Status:        core.DraftStatusPending,
		ReceiptStatus: core.DraftReceiptNA,
	}

	return ProcessOutcome{Obligation: advanced, Draft: draft, Processed: true}, nil
}

// SkipObligation advances the schedule past the pending occurrence
// without producing a transaction draft and without touching
// LastProcessed.
func SkipObligation(ob core.RecurringObligation, now time.Time) (ProcessOutcome, error) {
	if !ob.IsActive || ob.NextDue.IsEmpty() {
		return ProcessOutcome{Obligation: ob}, nil
	}

	advanced, err := advanceSchedule(ob, now)
	if err != nil {
		return ProcessOutcome{Obligation: ob}, err
	}

	return ProcessOutcome{Obligation: advanced, Processed: true}, nil
}

// DeactivateObligation retires an obligation by user intent: the
// pending occurrence is cleared and nothing further is scheduled. The
// record and its transaction history stay in place, and a later edit
// re-enters the schedule through RescheduleObligation.
func DeactivateObligation(ob core.RecurringObligation) core.RecurringObligation {
	ob.NextDue = core.Date{}
	ob.IsActive = false
	return ob
}

// RescheduleObligation recomputes NextDue after a frequency or anchor
// edit, re-entering the schedule the same way a newly created
// obligation would. The record is validated first; on any error it is
// returned unchanged.
func RescheduleObligation(ob core.RecurringObligation, now time.Time) (core.RecurringObligation, error) {
	if err := ob.Validate(); err != nil {
		return ob, err
	}

	due, err := schedule.InitialDue(ob.Frequency, ob.StartDate, now, schedule.AnchorsOf(ob))
	if err != nil {
		return ob, err
	}

	updated := ob
	if !ob.EndDate.IsEmpty() && due.After(ob.EndDate.Time) {
		updated.NextDue = core.Date{}
		updated.IsActive = false
		return updated, nil
	}
	updated.NextDue = core.DateOf(due)
	updated.IsActive = true
	return updated, nil
}

// advanceSchedule computes the occurrence after now and applies the
// end-date termination rule: a next occurrence past the inclusive
// EndDate ends the schedule (NextDue cleared, IsActive false).
func advanceSchedule(ob core.RecurringObligation, now time.Time) (core.RecurringObligation, error) {
	next, err := schedule.NextOccurrence(ob.Frequency, now, schedule.AnchorsOf(ob))
	if err != nil {
		return ob, err
	}

	updated := ob
	if !ob.EndDate.IsEmpty() && next.After(ob.EndDate.Time) {
		updated.NextDue = core.Date{}
		updated.IsActive = false
		return updated, nil
	}
	updated.NextDue = core.DateOf(next)
	return updated, nil
}
