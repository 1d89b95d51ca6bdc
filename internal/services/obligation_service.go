package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cadenza/internal/amqp"
	"cadenza/internal/core"
	applog "cadenza/internal/log"
	"cadenza/internal/schedule"
	"cadenza/internal/store"
)

// ObligationService orchestrates obligation operations across the
// backing store, the transaction ledger and AMQP. The AMQP client is
// optional: without one, processed transactions simply stay pending
// until something else posts them.
type ObligationService struct {
	obligations store.ObligationStore
	ledger      store.TransactionLedger
	amqpClient  *amqp.Client
	structured  *applog.StructuredLogger
}

func NewObligationService(obligations store.ObligationStore, ledger store.TransactionLedger, amqpClient *amqp.Client) *ObligationService {
	return &ObligationService{
		obligations: obligations,
		ledger:      ledger,
		amqpClient:  amqpClient,
		structured: applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentSchedule,
		})),
	}
}

func (s *ObligationService) List(ctx context.Context) ([]core.RecurringObligation, error) {
	return s.obligations.ListObligations(ctx)
}

func (s *ObligationService) Get(ctx context.Context, id string) (core.RecurringObligation, error) {
	return s.obligations.GetObligation(ctx, id)
}

// Create validates the obligation, seeds its first due date and saves
// it. A start date past the end date yields a record that is stored
// already ended.
func (s *ObligationService) Create(ctx context.Context, ob core.RecurringObligation, now time.Time) (core.RecurringObligation, error) {
	ob.IsActive = true
	scheduled, err := RescheduleObligation(ob, now)
	if err != nil {
		return core.RecurringObligation{}, err
	}

	saved, err := s.obligations.AddObligation(ctx, scheduled)
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("save obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation created",
		"id", saved.ID,
		"name", saved.Name,
		"next_due", saved.NextDue.Format("2006-01-02"))

	return saved, nil
}

// Update replaces an obligation's definition and recomputes its
// schedule, so frequency or anchor edits take effect from the next
// occurrence.
func (s *ObligationService) Update(ctx context.Context, ob core.RecurringObligation, now time.Time) (core.RecurringObligation, error) {
	current, err := s.obligations.GetObligation(ctx, ob.ID)
	if err != nil {
		return core.RecurringObligation{}, err
	}
	ob.LastProcessed = current.LastProcessed

	scheduled, err := RescheduleObligation(ob, now)
	if err != nil {
		return core.RecurringObligation{}, err
	}

	if err := s.obligations.UpdateObligation(ctx, scheduled); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("update obligation: %w", err)
	}
	return scheduled, nil
}

// Deactivate retires an obligation without deleting it or its
// transaction history. Deactivating an already inactive record is a
// no-op that still returns the stored state.
func (s *ObligationService) Deactivate(ctx context.Context, id string) (core.RecurringObligation, error) {
	ob, err := s.obligations.GetObligation(ctx, id)
	if err != nil {
		return core.RecurringObligation{}, err
	}

	updated := DeactivateObligation(ob)
	if err := s.obligations.UpdateObligation(ctx, updated); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("deactivate obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation deactivated",
		"id", id,
		"name", updated.Name)
	return updated, nil
}

// Delete removes an obligation and unlinks its generated transactions.
func (s *ObligationService) Delete(ctx context.Context, id string) error {
	if err := s.obligations.DeleteObligation(ctx, id); err != nil {
		return err
	}

	n, err := s.ledger.DeleteTransactionsByObligation(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unlink transactions",
			"obligation_id", id, "error", err)
		// Obligation is already gone, don't fail the request
		return nil
	}

	slog.InfoContext(ctx, "Obligation deleted",
		"id", id,
		"transactions_unlinked", n)
	return nil
}

// ProcessNow marks the pending occurrence of an obligation as paid,
// appends a pending transaction to the ledger and publishes a
// processed message for the posting worker. A no-op outcome (inactive
// record or nothing pending) is returned with Processed=false.
func (s *ObligationService) ProcessNow(ctx context.Context, id string, now time.Time) (ProcessOutcome, error) {
	ob, err := s.obligations.GetObligation(ctx, id)
	if err != nil {
		return ProcessOutcome{}, err
	}

	outcome, err := ProcessObligation(ob, now)
	if err != nil {
		return ProcessOutcome{}, err
	}
	if !outcome.Processed {
		return outcome, nil
	}

	if err := s.obligations.UpdateObligation(ctx, outcome.Obligation); err != nil {
		return ProcessOutcome{}, fmt.Errorf("persist processed obligation: %w", err)
	}

	txID, err := s.ledger.AppendTransaction(ctx, *outcome.Draft)
	if err != nil {
		return ProcessOutcome{}, fmt.Errorf("append transaction: %w", err)
	}
	outcome.TransactionID = txID

	if err := s.publishProcessed(ctx, txID, outcome); err != nil {
		slog.ErrorContext(ctx, "Failed to publish processed message",
			"transaction_id", txID, "error", err)
		// Don't fail the request - schedule and ledger are already updated
	}

	s.structured.LogObligationProcessed(ctx,
		id,
		outcome.Obligation.Name,
		outcome.Draft.Amount.Cents,
		string(outcome.Obligation.Frequency),
		txID)

	return outcome, nil
}

// SkipNow advances the schedule past the pending occurrence without
// recording a transaction.
func (s *ObligationService) SkipNow(ctx context.Context, id string, now time.Time) (ProcessOutcome, error) {
	ob, err := s.obligations.GetObligation(ctx, id)
	if err != nil {
		return ProcessOutcome{}, err
	}

	outcome, err := SkipObligation(ob, now)
	if err != nil {
		return ProcessOutcome{}, err
	}
	if !outcome.Processed {
		return outcome, nil
	}

	if err := s.obligations.UpdateObligation(ctx, outcome.Obligation); err != nil {
		return ProcessOutcome{}, fmt.Errorf("persist skipped obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation skipped",
		"id", id,
		"next_due", outcome.Obligation.NextDue.Format("2006-01-02"))

	return outcome, nil
}

// Upcoming lists obligations due within lookaheadDays of now, soonest
// first.
func (s *ObligationService) Upcoming(ctx context.Context, now time.Time, lookaheadDays int) ([]core.UpcomingObligation, error) {
	obligations, err := s.obligations.ListObligations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return Upcoming(obligations, now, lookaheadDays), nil
}

// NextOccurrences previews the next n due dates of an obligation
// without touching stored state.
func (s *ObligationService) NextOccurrences(ctx context.Context, id string, n int) ([]core.Date, error) {
	ob, err := s.obligations.GetObligation(ctx, id)
	if err != nil {
		return nil, err
	}
	if ob.NextDue.IsEmpty() {
		return nil, nil
	}

	anchors := schedule.AnchorsOf(ob)
	out := make([]core.Date, 0, n)
	cursor := ob.NextDue.Time
	out = append(out, ob.NextDue)
	for len(out) < n {
		next, err := schedule.NextOccurrence(ob.Frequency, cursor, anchors)
		if err != nil {
			return nil, err
		}
		if !ob.EndDate.IsEmpty() && next.After(ob.EndDate.Time) {
			break
		}
		out = append(out, core.DateOf(next))
		cursor = next
	}
	return out, nil
}

func (s *ObligationService) publishProcessed(ctx context.Context, txID string, outcome ProcessOutcome) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping processed message")
		return nil
	}

	msg := amqp.NewObligationProcessedMessage(
		txID,
		outcome.Obligation.ID,
		outcome.Draft.Category,
		outcome.Draft.Amount.Cents,
		string(outcome.Draft.Direction),
	)
	return s.amqpClient.PublishObligationProcessed(ctx, msg)
}
