// Package http exposes the scheduler and budget ledger as a JSON API.
//
// This file parses and validates request payloads, converting wire
// shapes into core types before any handler logic runs.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cadenza/internal/core"
)

const dateLayout = "2006-01-02"

// maxBodySize guards against oversized payloads.
const maxBodySize = 1 << 20 // 1 MiB

type obligationRequest struct {
	Name           string `json:"name"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
	Category       string `json:"category"`
	AccountID      string `json:"account_id"`
	ToAccount      string `json:"to_account"`
	Method         string `json:"method"`
	Frequency      string `json:"frequency"`
	DayOfMonth     *int   `json:"day_of_month"`
	DayOfWeek      *int   `json:"day_of_week"`
	MonthOfYear    *int   `json:"month_of_year"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	AutoProcess    bool   `json:"auto_process"`
	VariableAmount bool   `json:"variable_amount"`
}

type budgetRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Amount         string `json:"amount"`
	Period         string `json:"period"`
	Rollover       bool   `json:"rollover"`
	AlertThreshold int    `json:"alert_threshold"`

	// IsActive is optional on updates; omitted means active. Create
	// ignores it, a new budget always starts active.
	IsActive *bool `json:"is_active"`
}

func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseObligation converts a request payload into a core obligation.
// Wire-format problems (bad dates, unparseable amounts) surface here;
// domain validation is left to core.RecurringObligation.Validate.
func (req obligationRequest) parseObligation() (core.RecurringObligation, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("amount: %w", err)
	}

	startDate, err := parseRequiredDate(req.StartDate, "start_date")
	if err != nil {
		return core.RecurringObligation{}, err
	}
	endDate, err := parseOptionalDate(req.EndDate, "end_date")
	if err != nil {
		return core.RecurringObligation{}, err
	}

	return core.RecurringObligation{
		Name:           strings.TrimSpace(req.Name),
		Amount:         core.Money{Cents: cents},
		Direction:      core.Direction(req.Direction),
		Category:       strings.TrimSpace(req.Category),
		AccountID:      strings.TrimSpace(req.AccountID),
		ToAccount:      strings.TrimSpace(req.ToAccount),
		Method:         strings.TrimSpace(req.Method),
		Frequency:      core.Frequency(req.Frequency),
		DayOfMonth:     req.DayOfMonth,
		DayOfWeek:      req.DayOfWeek,
		MonthOfYear:    req.MonthOfYear,
		StartDate:      startDate,
		EndDate:        endDate,
		AutoProcess:    req.AutoProcess,
		VariableAmount: req.VariableAmount,
	}, nil
}

// parseBudget converts a request payload into a core budget.
func (req budgetRequest) parseBudget() (core.Budget, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.Budget{}, fmt.Errorf("amount: %w", err)
	}

	return core.Budget{
		Name:           strings.TrimSpace(req.Name),
		Category:       strings.TrimSpace(req.Category),
		Amount:         core.Money{Cents: cents},
		Period:         core.Period(req.Period),
		Rollover:       req.Rollover,
		AlertThreshold: req.AlertThreshold,
	}, nil
}

func parseRequiredDate(s, field string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: expected YYYY-MM-DD", field)
	}
	return core.Date{Time: t}, nil
}

func parseOptionalDate(s, field string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return parseRequiredDate(s, field)
}
