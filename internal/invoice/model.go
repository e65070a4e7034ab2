package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is derived from the completed payments recorded against an invoice
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// DeriveStatus maps the completed total paid against an invoice amount onto
// a status: paid once the total covers the amount, partial while anything
// has been paid, pending otherwise.
func DeriveStatus(amount, completedTotal decimal.Decimal) Status {
	switch {
	case completedTotal.GreaterThanOrEqual(amount):
		return StatusPaid
	case completedTotal.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Invoice is a bill owed by a single user
type Invoice struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	VendorName    string          `json:"vendor_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	InvoiceNumber *string         `json:"invoice_number,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Category      *string         `json:"category,omitempty"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PaymentSummary is the slice of a payment shown alongside its invoice
type PaymentSummary struct {
	ID          int64           `json:"id"`
	PaymentDate time.Time       `json:"payment_date"`
	PaymentType string          `json:"payment_type"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
}
