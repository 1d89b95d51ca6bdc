package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cadenza/internal/core"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists obligations, budgets and transactions.
// It implements the store ports.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const obligationColumns = `id, name, amount_cents, direction, category, account_id, to_account, method,
	frequency, day_of_month, day_of_week, month_of_year,
	start_date, end_date, next_due, last_processed,
	is_active, auto_process, variable_amount`

func (r *SQLiteRepository) ListObligations(ctx context.Context) ([]core.RecurringObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringObligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, ob)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, id string) (core.RecurringObligation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	ob, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringObligation{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("get obligation %s: %w", id, err)
	}
	return ob, nil
}

func (r *SQLiteRepository) AddObligation(ctx context.Context, ob core.RecurringObligation) (core.RecurringObligation, error) {
	if err := ob.Validate(); err != nil {
		return core.RecurringObligation{}, err
	}
	if ob.ID == "" {
		ob.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO obligations (`+obligationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ob.ID, ob.Name, ob.Amount.Cents, string(ob.Direction), ob.Category,
		ob.AccountID, ob.ToAccount, ob.Method, string(ob.Frequency),
		nullableInt(ob.DayOfMonth), nullableInt(ob.DayOfWeek), nullableInt(ob.MonthOfYear),
		ob.StartDate.Format(dateLayout), nullableDate(ob.EndDate),
		nullableDate(ob.NextDue), nullableDate(ob.LastProcessed),
		boolToInt(ob.IsActive), boolToInt(ob.AutoProcess), boolToInt(ob.VariableAmount))
	if err != nil {
		return core.RecurringObligation{}, fmt.Errorf("insert obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved",
		"id", ob.ID,
		"name", ob.Name,
		"frequency", ob.Frequency,
		"amount_cents", ob.Amount.Cents)

	return ob, nil
}

func (r *SQLiteRepository) UpdateObligation(ctx context.Context, ob core.RecurringObligation) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE obligations SET
			name = ?, amount_cents = ?, direction = ?, category = ?,
			account_id = ?, to_account = ?, method = ?, frequency = ?,
			day_of_month = ?, day_of_week = ?, month_of_year = ?,
			start_date = ?, end_date = ?, next_due = ?, last_processed = ?,
			is_active = ?, auto_process = ?, variable_amount = ?,
			updated_at = datetime('now')
		 WHERE id = ?`,
		ob.Name, ob.Amount.Cents, string(ob.Direction), ob.Category,
		ob.AccountID, ob.ToAccount, ob.Method, string(ob.Frequency),
		nullableInt(ob.DayOfMonth), nullableInt(ob.DayOfWeek), nullableInt(ob.MonthOfYear),
		ob.StartDate.Format(dateLayout), nullableDate(ob.EndDate),
		nullableDate(ob.NextDue), nullableDate(ob.LastProcessed),
		boolToInt(ob.IsActive), boolToInt(ob.AutoProcess), boolToInt(ob.VariableAmount),
		ob.ID)
	if err != nil {
		return fmt.Errorf("update obligation %s: %w", ob.ID, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation %s: %w", id, err)
	}
	return requireRow(res)
}

const budgetColumns = `id, name, category, amount_cents, spent_cents, period,
	rollover, alert_threshold, is_active, last_reset`

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Category, b.Amount.Cents, b.SpentCents, string(b.Period),
		boolToInt(b.Rollover), b.AlertThreshold, boolToInt(b.IsActive), b.LastReset)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID,
		"name", b.Name,
		"period", b.Period,
		"amount_cents", b.Amount.Cents)

	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET
			name = ?, category = ?, amount_cents = ?, spent_cents = ?,
			period = ?, rollover = ?, alert_threshold = ?, is_active = ?,
			last_reset = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		b.Name, b.Category, b.Amount.Cents, b.SpentCents,
		string(b.Period), boolToInt(b.Rollover), b.AlertThreshold, boolToInt(b.IsActive),
		b.LastReset, b.ID)
	if err != nil {
		return fmt.Errorf("update budget %s: %w", b.ID, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return requireRow(res)
}

// AppendTransaction persists a draft and assigns it an id.
// Implements store.TransactionLedger.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, draft core.TransactionDraft) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, obligation_id, payee, amount_cents, direction,
			category, account_id, to_account, method, tx_date, status, receipt_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, draft.ObligationID, draft.Payee, draft.Amount.Cents, string(draft.Direction),
		draft.Category, draft.AccountID, draft.ToAccount, draft.Method,
		draft.Date.Format(dateLayout), draft.Status, draft.ReceiptStatus)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended to ledger",
		"id", id,
		"obligation_id", draft.ObligationID,
		"payee", draft.Payee,
		"amount_cents", draft.Amount.Cents)

	return id, nil
}

func (r *SQLiteRepository) MarkTransactionPosted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`,
		core.TransactionStatusPosted, id)
	if err != nil {
		return fmt.Errorf("mark transaction posted %s: %w", id, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransactionsByObligation(ctx context.Context, obligationID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE obligation_id = ?`, obligationID)
	if err != nil {
		return 0, fmt.Errorf("delete transactions for obligation %s: %w", obligationID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	slog.InfoContext(ctx, "Transactions unlinked from obligation",
		"obligation_id", obligationID,
		"deleted", n)

	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanObligation(s scanner) (core.RecurringObligation, error) {
	var (
		ob                                  core.RecurringObligation
		direction, frequency                string
		dayOfMonth, dayOfWeek, monthOfYear  sql.NullInt64
		startDate                           string
		endDate, nextDue, lastProcessed     sql.NullString
		isActive, autoProcess, variableAmnt int
	)
	err := s.Scan(&ob.ID, &ob.Name, &ob.Amount.Cents, &direction, &ob.Category,
		&ob.AccountID, &ob.ToAccount, &ob.Method, &frequency,
		&dayOfMonth, &dayOfWeek, &monthOfYear,
		&startDate, &endDate, &nextDue, &lastProcessed,
		&isActive, &autoProcess, &variableAmnt)
	if err != nil {
		return core.RecurringObligation{}, err
	}

	ob.Direction = core.Direction(direction)
	ob.Frequency = core.Frequency(frequency)
	ob.DayOfMonth = intFromNull(dayOfMonth)
	ob.DayOfWeek = intFromNull(dayOfWeek)
	ob.MonthOfYear = intFromNull(monthOfYear)
	ob.IsActive = isActive != 0
	ob.AutoProcess = autoProcess != 0
	ob.VariableAmount = variableAmnt != 0

	if ob.StartDate, err = parseDate(startDate); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("parse start_date: %w", err)
	}
	if ob.EndDate, err = parseNullDate(endDate); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("parse end_date: %w", err)
	}
	if ob.NextDue, err = parseNullDate(nextDue); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("parse next_due: %w", err)
	}
	if ob.LastProcessed, err = parseNullDate(lastProcessed); err != nil {
		return core.RecurringObligation{}, fmt.Errorf("parse last_processed: %w", err)
	}
	return ob, nil
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                  core.Budget
		period             string
		rollover, isActive int
	)
	err := s.Scan(&b.ID, &b.Name, &b.Category, &b.Amount.Cents, &b.SpentCents,
		&period, &rollover, &b.AlertThreshold, &isActive, &b.LastReset)
	if err != nil {
		return core.Budget{}, err
	}
	b.Period = core.Period(period)
	b.Rollover = rollover != 0
	b.IsActive = isActive != 0
	return b, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.Format(dateLayout)
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return parseDate(s.String)
}
