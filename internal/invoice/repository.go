package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

const invoiceColumns = `id, user_id, vendor_name, amount, currency, invoice_date, invoice_number, description, category, status, created_at, updated_at`

// Repository handles invoice persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new invoice repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (*Invoice, error) {
	i := &Invoice{}
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.VendorName,
		&i.Amount,
		&i.Currency,
		database.Time(&i.InvoiceDate),
		&i.InvoiceNumber,
		&i.Description,
		&i.Category,
		&i.Status,
		database.Time(&i.CreatedAt),
		database.Time(&i.UpdatedAt),
	)
	return i, err
}

// Create inserts a new invoice for userID
func (r *Repository) Create(ctx context.Context, userID int64, req *CreateInvoiceRequest, currency string) (*Invoice, error) {
	query := `
		INSERT INTO invoices (user_id, vendor_name, amount, currency, invoice_date, invoice_number, description, category, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + invoiceColumns

	i, err := scanInvoice(r.db.QueryRowContext(ctx, query,
		userID, req.VendorName, req.Amount.Round(2), currency, req.InvoiceDate,
		req.InvoiceNumber, req.Description, req.Category, StatusPending,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return i, nil
}

// GetByID retrieves an invoice owned by userID
func (r *Repository) GetByID(ctx context.Context, id, userID int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`

	i, err := scanInvoice(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return i, nil
}

// GetAmount returns an invoice's amount regardless of owner
func (r *Repository) GetAmount(ctx context.Context, id int64) (decimal.Decimal, bool, error) {
	var amount decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT amount FROM invoices WHERE id = $1`, id).Scan(&amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get invoice amount: %w", err)
	}
	return amount, true, nil
}

// List retrieves a page of a user's invoices, newest first, optionally
// filtered by status.
func (r *Repository) List(ctx context.Context, userID int64, status *Status, limit, offset int) ([]*Invoice, int, error) {
	filter := `user_id = $1`
	args := []any{userID}
	if status != nil {
		filter += ` AND status = $2`
		args = append(args, *status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE `+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY invoice_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, filter, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*Invoice{}
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// Update applies the non-nil fields of req
func (r *Repository) Update(ctx context.Context, id, userID int64, req *UpdateInvoiceRequest, now time.Time) (*Invoice, error) {
	var amount *decimal.Decimal
	if req.Amount != nil {
		rounded := req.Amount.Round(2)
		amount = &rounded
	}

	query := `
		UPDATE invoices
		SET vendor_name = COALESCE($3, vendor_name),
		    amount = COALESCE($4, amount),
		    currency = COALESCE($5, currency),
		    invoice_date = COALESCE($6, invoice_date),
		    invoice_number = COALESCE($7, invoice_number),
		    description = COALESCE($8, description),
		    category = COALESCE($9, category),
		    updated_at = $10
		WHERE id = $1 AND user_id = $2
		RETURNING ` + invoiceColumns

	i, err := scanInvoice(r.db.QueryRowContext(ctx, query,
		id, userID, req.VendorName, amount, req.Currency, req.InvoiceDate,
		req.InvoiceNumber, req.Description, req.Category, now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return i, nil
}

// Delete removes an invoice owned by userID
func (r *Repository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetStatus stores a derived status
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2`, id, status, now)
	if err != nil {
		return fmt.Errorf("failed to set invoice status: %w", err)
	}
	return nil
}

// CompletedPayments returns the amounts of the completed payments recorded
// against an invoice.
func (r *Repository) CompletedPayments(ctx context.Context, invoiceID int64) ([]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount_paid FROM payments WHERE invoice_id = $1 AND status = 'completed'`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice payments: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment amount: %w", err)
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}

// ListPayments returns every payment recorded against an invoice
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]*PaymentSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payment_date, payment_type, amount_paid, status, reference
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date DESC, id DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice payments: %w", err)
	}
	defer rows.Close()

	payments := []*PaymentSummary{}
	for rows.Next() {
		p := &PaymentSummary{}
		if err := rows.Scan(&p.ID, database.Time(&p.PaymentDate), &p.PaymentType, &p.AmountPaid, &p.Status, &p.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
