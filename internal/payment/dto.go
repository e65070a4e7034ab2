package payment

import "github.com/shopspring/decimal"

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	InvoiceID   *int64          `json:"invoice_id,omitempty" validate:"omitempty,gt=0"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentType Type            `json:"payment_type" validate:"required,oneof=cash card transfer check other"`
	AmountPaid  decimal.Decimal `json:"amount_paid" validate:"gt=0,lt=10000000000"`
	Status      Status          `json:"status,omitempty" validate:"omitempty,oneof=pending completed failed"`
	Reference   string          `json:"reference,omitempty" validate:"omitempty,max=100"`
	Notes       *string         `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// UpdatePaymentRequest represents the request body for updating a payment
type UpdatePaymentRequest struct {
	AmountPaid *decimal.Decimal `json:"amount_paid,omitempty" validate:"omitempty,gt=0,lt=10000000000"`
	Status     *Status          `json:"status,omitempty" validate:"omitempty,oneof=pending completed failed"`
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// PaymentResponse is the API representation of a payment
type PaymentResponse struct {
	ID          int64           `json:"id"`
	InvoiceID   *int64          `json:"invoice_id"`
	PaymentDate string          `json:"payment_date"`
	PaymentType Type            `json:"payment_type"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Status      Status          `json:"status"`
	Reference   string          `json:"reference"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// ToResponse converts a Payment to its API representation
func (p *Payment) ToResponse() *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		PaymentDate: p.PaymentDate.Format("2006-01-02"),
		PaymentType: p.PaymentType,
		AmountPaid:  p.AmountPaid,
		Status:      p.Status,
		Reference:   p.Reference,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
