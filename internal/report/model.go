package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// invoiceLine is the slice of an invoice the aggregates need
type invoiceLine struct {
	Amount      decimal.Decimal
	InvoiceDate time.Time
	Status      string
	Category    *string
}

// paymentLine is the slice of a payment the aggregates need
type paymentLine struct {
	AmountPaid  decimal.Decimal
	PaymentType string
	Status      string
}

// splitLine is one of the user's shares of a group expense
type splitLine struct {
	AmountOwed  decimal.Decimal
	IsPaid      bool
	ExpenseDate time.Time
}

// invoiceFilter narrows the invoices read for an aggregate. Zero values
// mean no restriction.
type invoiceFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}
