package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cadenza/internal/store"
)

// AutoProcessor handles the automatic processing of obligations flagged
// auto-process whose due date has arrived.
type AutoProcessor struct {
	obligations       store.ObligationStore
	obligationService *ObligationService
}

// NewAutoProcessor creates a new automatic obligation processor
func NewAutoProcessor(obligations store.ObligationStore, obligationService *ObligationService) *AutoProcessor {
	return &AutoProcessor{
		obligations:       obligations,
		obligationService: obligationService,
	}
}

// ProcessDueObligations processes every active auto-process obligation
// due on or before now. Failures on individual records are logged and
// skipped so one bad row never stalls the sweep.
func (p *AutoProcessor) ProcessDueObligations(ctx context.Context, now time.Time) (int, error) {
	if p.obligations == nil || p.obligationService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	obligations, err := p.obligations.ListObligations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list obligations: %w", err)
	}

	slog.InfoContext(ctx, "Processing due obligations",
		"total", len(obligations),
		"processing_date", now.Format("2006-01-02"))

	processedCount := 0

	for _, ob := range obligations {
		if !ob.IsActive || !ob.AutoProcess || ob.NextDue.IsEmpty() {
			continue
		}
		if ob.NextDue.After(now) {
			continue
		}

		outcome, err := p.obligationService.ProcessNow(ctx, ob.ID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to auto-process obligation",
				"id", ob.ID,
				"name", ob.Name,
				"error", err)
			continue
		}
		if !outcome.Processed {
			continue
		}

		processedCount++
		slog.InfoContext(ctx, "Auto-processed obligation",
			"id", ob.ID,
			"name", ob.Name,
			"amount_cents", ob.Amount.Cents,
			"frequency", ob.Frequency)
	}

	slog.InfoContext(ctx, "Obligation processing complete",
		"processed", processedCount,
		"total_checked", len(obligations))

	return processedCount, nil
}
