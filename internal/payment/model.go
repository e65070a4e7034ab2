package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is how a payment was made
type Type string

const (
	TypeCash     Type = "cash"
	TypeCard     Type = "card"
	TypeTransfer Type = "transfer"
	TypeCheck    Type = "check"
	TypeOther    Type = "other"

	// TypeGroupExpense marks the audit record written when a split is paid
	TypeGroupExpense Type = "group_expense"
)

// Status is the lifecycle state of a payment
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment is money a user paid, optionally against one of their invoices
type Payment struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	InvoiceID   *int64          `json:"invoice_id"`
	PaymentDate time.Time       `json:"payment_date"`
	PaymentType Type            `json:"payment_type"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      Status          `json:"status"`
	Reference   string          `json:"reference"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Completed reports whether the payment counts towards its invoice
func (p *Payment) Completed() bool {
	return p.Status == StatusCompleted
}
