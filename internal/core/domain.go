package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

type (
	Frequency string

	Period string

	Direction string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurringObligation is a recurring financial commitment (bill,
	// subscription, payroll deposit) tracked independently of any single
	// generated transaction.
	//
	// A zero NextDue means the obligation has no pending occurrence:
	// either it never started relative to "now", or its schedule ran
	// past EndDate.
	RecurringObligation struct {
		ID        string
		Name      string
		Amount    Money
		Direction Direction
		Category  string
		AccountID string // source account reference, resolved externally
		ToAccount string // destination account reference, resolved externally
		Method    string

		Frequency   Frequency
		DayOfMonth  *int // 1-31, used by monthly/quarterly/yearly
		DayOfWeek   *int // 0-6 (Sunday=0), advisory for weekly/biweekly
		MonthOfYear *int // 1-12, used by yearly

		StartDate     Date
		EndDate       Date // zero means no end; inclusive upper bound otherwise
		NextDue       Date
		LastProcessed Date

		IsActive       bool
		AutoProcess    bool
		VariableAmount bool
	}

	// Budget is a periodic spending ceiling for a category. Spent may be
	// transiently negative after a rollover credit.
	Budget struct {
		ID             string
		Name           string
		Category       string
		Amount         Money
		SpentCents     int64
		Period         Period
		Rollover       bool
		AlertThreshold int // 0-100 percentage
		IsActive       bool
		LastReset      string // period key of the last reset, e.g. "2024-03"
	}

	// TransactionDraft is the record produced by processing an obligation.
	// The transaction ledger, not the scheduler, assigns it an id and
	// persists it.
	TransactionDraft struct {
		ObligationID  string
		Payee         string
		Amount        Money
		Direction     Direction
		Category      string
		AccountID     string
		ToAccount     string
		Method        string
		Date          Date
		Status        string
		ReceiptStatus string
	}
)

const (
	DraftStatusPending      = "pending"
	DraftReceiptNA          = "n/a"
	TransactionStatusPosted = "posted"
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidAnchor    = errors.New("invalid anchor")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrNotActive        = errors.New("obligation is not active")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNotFound         = errors.New("record not found")
)

// NewDate creates a Date at midnight UTC from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day at midnight UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty returns true if the date is zero (optional dates use the zero value).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (p Period) Validate() error {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

func (dir Direction) Validate() error {
	switch dir {
	case Credit, Debit:
		return nil
	default:
		return ErrInvalidDirection
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (o RecurringObligation) Validate() error {
	if len(strings.TrimSpace(o.Name)) == 0 {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if err := o.Direction.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(o.Category) == "" {
		return ErrEmptyCategory
	}
	if err := o.Frequency.Validate(); err != nil {
		return err
	}
	if err := o.validateAnchors(); err != nil {
		return err
	}
	if err := o.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !o.EndDate.IsEmpty() && o.EndDate.Before(o.StartDate.Time) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// validateAnchors enforces anchor ranges at the boundary so bad anchors
// never reach the calendar engine.
func (o RecurringObligation) validateAnchors() error {
	if o.DayOfMonth != nil && (*o.DayOfMonth < 1 || *o.DayOfMonth > 31) {
		return ErrInvalidAnchor
	}
	if o.DayOfWeek != nil && (*o.DayOfWeek < 0 || *o.DayOfWeek > 6) {
		return ErrInvalidAnchor
	}
	if o.MonthOfYear != nil && (*o.MonthOfYear < 1 || *o.MonthOfYear > 12) {
		return ErrInvalidAnchor
	}
	return nil
}

func (b Budget) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return errors.New("alert threshold must be between 0 and 100")
	}
	return nil
}
