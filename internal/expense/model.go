package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/expense/recurrence"
	"github.com/fkhayef/sharedexpenses/internal/payment"
)

// Expense represents a group expense paid by one member
type Expense struct {
	ID                 int64                `json:"id"`
	GroupID            int64                `json:"group_id"`
	PaidBy             int64                `json:"paid_by"`
	Description        string               `json:"description"`
	Amount             decimal.Decimal      `json:"amount"`
	Currency           string               `json:"currency"`
	ExpenseDate        time.Time            `json:"expense_date"`
	Category           *string              `json:"category,omitempty"`
	IsRecurring        bool                 `json:"is_recurring"`
	RecurrenceInterval *recurrence.Interval `json:"recurrence_interval,omitempty"`
	NextOccurrence     *time.Time           `json:"next_occurrence,omitempty"`
	InvoiceID          *int64               `json:"invoice_id,omitempty"`
	Notes              *string              `json:"notes,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`

	// Populated via JOIN
	PayerEmail string `json:"payer_email,omitempty"`
	PayerName  string `json:"payer_name,omitempty"`

	Splits []*Split `json:"splits,omitempty"`
}

// Split is one member's share of an expense
type Split struct {
	ID         int64           `json:"id"`
	ExpenseID  int64           `json:"expense_id"`
	UserID     int64           `json:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	IsPaid     bool            `json:"is_paid"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Populated via JOIN
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// DisplayName is the name shown to other members
func (s *Split) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// PayResult is the outcome of marking a split as paid. Payment is nil when
// the audit record could not be written.
type PayResult struct {
	Split   *Split
	Payment *payment.Payment
	Message string
}
