package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

const paymentColumns = `id, user_id, invoice_id, payment_date, payment_type, amount_paid, status, reference, notes, created_at, updated_at`

// Repository handles payment persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new payment repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (*Payment, error) {
	p := &Payment{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.InvoiceID,
		database.Time(&p.PaymentDate),
		&p.PaymentType,
		&p.AmountPaid,
		&p.Status,
		&p.Reference,
		&p.Notes,
		database.Time(&p.CreatedAt),
		database.Time(&p.UpdatedAt),
	)
	return p, err
}

// Create inserts a payment
func (r *Repository) Create(ctx context.Context, p *Payment) (*Payment, error) {
	query := `
		INSERT INTO payments (user_id, invoice_id, payment_date, payment_type, amount_paid, status, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + paymentColumns

	created, err := scanPayment(r.db.QueryRowContext(ctx, query,
		p.UserID, p.InvoiceID, database.Date(p.PaymentDate), p.PaymentType,
		p.AmountPaid.Round(2), p.Status, p.Reference, p.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return created, nil
}

// GetByID retrieves a payment owned by userID
func (r *Repository) GetByID(ctx context.Context, id, userID int64) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND user_id = $2`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListByUserID retrieves a page of a user's payments, newest first
func (r *Repository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Payment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

// Update applies the non-nil fields of req
func (r *Repository) Update(ctx context.Context, id, userID int64, req *UpdatePaymentRequest, now time.Time) (*Payment, error) {
	var amount *decimal.Decimal
	if req.AmountPaid != nil {
		rounded := req.AmountPaid.Round(2)
		amount = &rounded
	}

	query := `
		UPDATE payments
		SET amount_paid = COALESCE($3, amount_paid),
		    status = COALESCE($4, status),
		    notes = COALESCE($5, notes),
		    updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id, userID, amount, req.Status, req.Notes, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	return p, nil
}

// Delete removes a payment owned by userID
func (r *Repository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete payment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
