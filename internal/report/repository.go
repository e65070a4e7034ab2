package report

import (
	"context"
	"fmt"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

// Repository reads the rows the personal reports aggregate
type Repository struct {
	db database.Querier
}

// NewRepository creates a new report repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) invoices(ctx context.Context, userID int64, f invoiceFilter) ([]*invoiceLine, error) {
	query := `SELECT amount, invoice_date, status, category FROM invoices WHERE user_id = $1`
	args := []any{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, database.Date(*f.From))
		query += fmt.Sprintf(` AND invoice_date >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, database.Date(*f.To))
		query += fmt.Sprintf(` AND invoice_date <= $%d`, len(args))
	}
	query += ` ORDER BY invoice_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	defer rows.Close()

	lines := make([]*invoiceLine, 0)
	for rows.Next() {
		l := &invoiceLine{}
		if err := rows.Scan(&l.Amount, database.Time(&l.InvoiceDate), &l.Status, &l.Category); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return lines, nil
}

func (r *Repository) payments(ctx context.Context, userID int64) ([]*paymentLine, error) {
	query := `SELECT amount_paid, payment_type, status FROM payments WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	defer rows.Close()

	lines := make([]*paymentLine, 0)
	for rows.Next() {
		l := &paymentLine{}
		if err := rows.Scan(&l.AmountPaid, &l.PaymentType, &l.Status); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return lines, nil
}

// splits returns every share the user holds across their groups
func (r *Repository) splits(ctx context.Context, userID int64) ([]*splitLine, error) {
	query := `
		SELECT s.amount_owed, s.is_paid, e.expense_date
		FROM expense_splits s
		JOIN group_expenses e ON e.id = s.expense_id
		WHERE s.user_id = $1
		ORDER BY e.expense_date, s.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read splits: %w", err)
	}
	defer rows.Close()

	lines := make([]*splitLine, 0)
	for rows.Next() {
		l := &splitLine{}
		if err := rows.Scan(&l.AmountOwed, &l.IsPaid, database.Time(&l.ExpenseDate)); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read splits: %w", err)
	}
	return lines, nil
}
