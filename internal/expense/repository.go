package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/expense/split"
)

const expenseColumns = `e.id, e.group_id, e.paid_by, e.description, e.amount, e.currency, e.expense_date,
	e.category, e.is_recurring, e.recurrence_interval, e.next_occurrence, e.invoice_id, e.notes, e.created_at,
	u.email, u.name`

const splitColumns = `s.id, s.expense_id, s.user_id, s.amount_owed, s.is_paid, s.paid_at, s.created_at, u.email, u.name`

// Repository handles the expense ledger: expenses, their splits and the
// recurring occurrence claims.
type Repository struct {
	db   *database.DB
	q    database.Querier
	inTx bool
}

// NewRepository creates a new expense repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithTx returns a repository whose queries run inside tx
func (r *Repository) WithTx(tx *database.Tx) *Repository {
	return &Repository{db: r.db, q: tx, inTx: true}
}

// InTx runs fn with a transactional repository
func (r *Repository) InTx(ctx context.Context, fn func(repo *Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(r.WithTx(tx))
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.PaidBy,
		&e.Description,
		&e.Amount,
		&e.Currency,
		database.Time(&e.ExpenseDate),
		&e.Category,
		&e.IsRecurring,
		&e.RecurrenceInterval,
		database.NullTime(&e.NextOccurrence),
		&e.InvoiceID,
		&e.Notes,
		database.Time(&e.CreatedAt),
		&e.PayerEmail,
		&e.PayerName,
	)
	return e, err
}

func scanSplit(row scanner) (*Split, error) {
	s := &Split{}
	err := row.Scan(
		&s.ID,
		&s.ExpenseID,
		&s.UserID,
		&s.AmountOwed,
		&s.IsPaid,
		database.NullTime(&s.PaidAt),
		database.Time(&s.CreatedAt),
		&s.Email,
		&s.Name,
	)
	return s, err
}

// InsertExpenseWithSplits writes an expense and one split per share in a
// single transaction and returns the stored expense with its splits.
func (r *Repository) InsertExpenseWithSplits(ctx context.Context, e *Expense, shares []split.Share) (*Expense, error) {
	var created *Expense
	err := r.InTx(ctx, func(repo *Repository) error {
		var err error
		created, err = repo.insertExpenseWithSplits(ctx, e, shares)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repository) insertExpenseWithSplits(ctx context.Context, e *Expense, shares []split.Share) (*Expense, error) {
	query := `
		INSERT INTO group_expenses (group_id, paid_by, description, amount, currency, expense_date, category,
			is_recurring, recurrence_interval, next_occurrence, invoice_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var nextOccurrence *string
	if e.NextOccurrence != nil {
		next := database.Date(*e.NextOccurrence)
		nextOccurrence = &next
	}

	var id int64
	err := r.q.QueryRowContext(ctx, query,
		e.GroupID,
		e.PaidBy,
		e.Description,
		e.Amount,
		e.Currency,
		database.Date(e.ExpenseDate),
		e.Category,
		e.IsRecurring,
		e.RecurrenceInterval,
		nextOccurrence,
		e.InvoiceID,
		e.Notes,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	splitQuery := `
		INSERT INTO expense_splits (expense_id, user_id, amount_owed, is_paid, paid_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, share := range shares {
		var paidAt *time.Time
		if share.PaidAt != nil {
			t := share.PaidAt.UTC()
			paidAt = &t
		}
		if _, err := r.q.ExecContext(ctx, splitQuery, id, share.UserID, share.AmountOwed, share.IsPaid, paidAt); err != nil {
			return nil, fmt.Errorf("failed to create split: %w", err)
		}
	}

	created, err := r.GetByID(ctx, e.GroupID, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("failed to reload expense %d", id)
	}
	return created, nil
}

// GetByID retrieves an expense of a group with its splits
func (r *Repository) GetByID(ctx context.Context, groupID, expenseID int64) (*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM group_expenses e
		JOIN users u ON u.id = e.paid_by
		WHERE e.id = $1 AND e.group_id = $2
	`

	e, err := scanExpense(r.q.QueryRowContext(ctx, query, expenseID, groupID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.attachSplits(ctx, []*Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByGroup retrieves a page of a group's expenses, newest first, with
// their splits embedded.
func (r *Repository) ListByGroup(ctx context.Context, groupID int64, limit, offset int) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM group_expenses e
		JOIN users u ON u.id = e.paid_by
		WHERE e.group_id = $1
		ORDER BY e.expense_date DESC, e.id DESC
		LIMIT $2 OFFSET $3
	`

	expenses, err := r.queryExpenses(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.attachSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// CountByGroup returns the number of expenses recorded in a group
func (r *Repository) CountByGroup(ctx context.Context, groupID int64) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM group_expenses WHERE group_id = $1`
	if err := r.q.QueryRowContext(ctx, query, groupID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return total, nil
}

func (r *Repository) queryExpenses(ctx context.Context, query string, args ...any) ([]*Expense, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// attachSplits loads the splits of every expense in one query
func (r *Repository) attachSplits(ctx context.Context, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	byID := make(map[int64]*Expense, len(expenses))
	placeholders := make([]string, len(expenses))
	args := make([]any, len(expenses))
	for i, e := range expenses {
		e.Splits = make([]*Split, 0)
		byID[e.ID] = e
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = e.ID
	}

	query := `
		SELECT ` + splitColumns + `
		FROM expense_splits s
		JOIN users u ON u.id = s.user_id
		WHERE s.expense_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY s.expense_id, s.id
	`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if e, ok := byID[s.ExpenseID]; ok {
			e.Splits = append(e.Splits, s)
		}
	}
	return rows.Err()
}

// GetSplit retrieves a split of an expense
func (r *Repository) GetSplit(ctx context.Context, expenseID, splitID int64) (*Split, error) {
	query := `
		SELECT ` + splitColumns + `
		FROM expense_splits s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expense_id = $2
	`

	s, err := scanSplit(r.q.QueryRowContext(ctx, query, splitID, expenseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get split: %w", err)
	}
	return s, nil
}

// MarkSplitPaid flips an unpaid split to paid. It reports false when no
// unpaid split matched, which is how concurrent callers lose the race.
func (r *Repository) MarkSplitPaid(ctx context.Context, expenseID, splitID int64, paidAt time.Time) (bool, error) {
	query := `
		UPDATE expense_splits
		SET is_paid = TRUE, paid_at = $3
		WHERE id = $1 AND expense_id = $2 AND is_paid = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, splitID, expenseID, paidAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark split paid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark split paid: %w", err)
	}
	return affected == 1, nil
}

// ListDueRecurring returns recurring expenses whose next occurrence is on or
// before today and that have not been materialised yet.
func (r *Repository) ListDueRecurring(ctx context.Context, today time.Time) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM group_expenses e
		JOIN users u ON u.id = e.paid_by
		WHERE e.is_recurring = TRUE
		  AND e.next_occurrence IS NOT NULL
		  AND e.next_occurrence <= $1
		  AND NOT EXISTS (SELECT 1 FROM expense_occurrences o WHERE o.source_expense_id = e.id)
		ORDER BY e.next_occurrence, e.id
	`

	expenses, err := r.queryExpenses(ctx, query, database.Date(today))
	if err != nil {
		return nil, fmt.Errorf("failed to list due recurring expenses: %w", err)
	}
	return expenses, nil
}

// ClaimOccurrence records that source has been materialised as created. It
// reports false when another run already claimed the source.
func (r *Repository) ClaimOccurrence(ctx context.Context, sourceID, createdID int64, date time.Time) (bool, error) {
	query := `
		INSERT INTO expense_occurrences (source_expense_id, created_expense_id, occurrence_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_expense_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, sourceID, createdID, database.Date(date))
	if err != nil {
		return false, fmt.Errorf("failed to claim occurrence: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim occurrence: %w", err)
	}
	return affected == 1, nil
}
