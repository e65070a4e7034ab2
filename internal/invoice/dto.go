package invoice

import "github.com/shopspring/decimal"

// CreateInvoiceRequest represents the request body for creating an invoice
type CreateInvoiceRequest struct {
	VendorName    string          `json:"vendor_name" validate:"required,max=200"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0,lt=10000000000"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	InvoiceDate   string          `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	InvoiceNumber *string         `json:"invoice_number,omitempty" validate:"omitempty,max=100"`
	Description   *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	Category      *string         `json:"category,omitempty" validate:"omitempty,max=100"`
}

// UpdateInvoiceRequest represents the request body for updating an invoice.
// Status is not accepted: it follows the payments.
type UpdateInvoiceRequest struct {
	VendorName    *string          `json:"vendor_name,omitempty" validate:"omitempty,min=1,max=200"`
	Amount        *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0,lt=10000000000"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	InvoiceDate   *string          `json:"invoice_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	InvoiceNumber *string          `json:"invoice_number,omitempty" validate:"omitempty,max=100"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
}

// InvoiceResponse is the API representation of an invoice
type InvoiceResponse struct {
	ID            int64             `json:"id"`
	VendorName    string            `json:"vendor_name"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	InvoiceDate   string            `json:"invoice_date"`
	InvoiceNumber *string           `json:"invoice_number,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Category      *string           `json:"category,omitempty"`
	Status        Status            `json:"status"`
	CreatedAt     string            `json:"created_at"`
	Payments      []*PaymentSummary `json:"payments,omitempty"`
}

// ToResponse converts an Invoice to its API representation
func (i *Invoice) ToResponse() *InvoiceResponse {
	return &InvoiceResponse{
		ID:            i.ID,
		VendorName:    i.VendorName,
		Amount:        i.Amount,
		Currency:      i.Currency,
		InvoiceDate:   i.InvoiceDate.Format("2006-01-02"),
		InvoiceNumber: i.InvoiceNumber,
		Description:   i.Description,
		Category:      i.Category,
		Status:        i.Status,
		CreatedAt:     i.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
