package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/expense/recurrence"
	"github.com/fkhayef/sharedexpenses/internal/payment"
)

// CreateExpenseRequest represents the request to create a group expense.
// description, amount and expense_date are checked by the service so that
// a missing one yields the single "Missing required fields" message.
type CreateExpenseRequest struct {
	Description        string               `json:"description" validate:"max=255"`
	Amount             decimal.Decimal      `json:"amount" validate:"lt=10000000000"`
	ExpenseDate        string               `json:"expense_date"`
	Category           *string              `json:"category,omitempty" validate:"omitempty,max=100"`
	IsRecurring        bool                 `json:"is_recurring"`
	RecurrenceInterval *recurrence.Interval `json:"recurrence_interval,omitempty" validate:"omitempty,oneof=daily weekly monthly yearly"`
	InvoiceID          *int64               `json:"invoice_id,omitempty" validate:"omitempty,gt=0"`
	Notes              *string              `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// MarkSplitPaidRequest represents the request to mark a split as paid
type MarkSplitPaidRequest struct {
	SplitID int64 `json:"splitId" validate:"required,gt=0"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID                 int64                `json:"id"`
	GroupID            int64                `json:"group_id"`
	PaidBy             int64                `json:"paid_by"`
	PayerEmail         string               `json:"payer_email,omitempty"`
	PayerName          string               `json:"payer_name,omitempty"`
	Description        string               `json:"description"`
	Amount             decimal.Decimal      `json:"amount"`
	Currency           string               `json:"currency"`
	ExpenseDate        string               `json:"expense_date"`
	Category           *string              `json:"category,omitempty"`
	IsRecurring        bool                 `json:"is_recurring"`
	RecurrenceInterval *recurrence.Interval `json:"recurrence_interval,omitempty"`
	NextOccurrence     *string              `json:"next_occurrence,omitempty"`
	InvoiceID          *int64               `json:"invoice_id,omitempty"`
	Notes              *string              `json:"notes,omitempty"`
	CreatedAt          string               `json:"created_at"`
	Splits             []*SplitResponse     `json:"splits"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	ID         int64           `json:"id"`
	ExpenseID  int64           `json:"expense_id"`
	UserID     int64           `json:"user_id"`
	Email      string          `json:"email,omitempty"`
	Name       string          `json:"name,omitempty"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	IsPaid     bool            `json:"is_paid"`
	PaidAt     *string         `json:"paid_at"`
}

// PayResponse is returned by the mark-paid endpoint. Payment is null when
// the audit record could not be saved.
type PayResponse struct {
	Split   *SplitResponse           `json:"split"`
	Payment *payment.PaymentResponse `json:"payment"`
	Message string                   `json:"message"`
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05Z"
)

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	resp := &ExpenseResponse{
		ID:                 e.ID,
		GroupID:            e.GroupID,
		PaidBy:             e.PaidBy,
		PayerEmail:         e.PayerEmail,
		PayerName:          e.PayerName,
		Description:        e.Description,
		Amount:             e.Amount,
		Currency:           e.Currency,
		ExpenseDate:        e.ExpenseDate.Format(dateLayout),
		Category:           e.Category,
		IsRecurring:        e.IsRecurring,
		RecurrenceInterval: e.RecurrenceInterval,
		InvoiceID:          e.InvoiceID,
		Notes:              e.Notes,
		CreatedAt:          e.CreatedAt.UTC().Format(timestampLayout),
		Splits:             make([]*SplitResponse, len(e.Splits)),
	}
	if e.NextOccurrence != nil {
		next := e.NextOccurrence.Format(dateLayout)
		resp.NextOccurrence = &next
	}
	for i, s := range e.Splits {
		resp.Splits[i] = s.ToResponse()
	}
	return resp
}

// ToResponse converts a Split model to a SplitResponse DTO
func (s *Split) ToResponse() *SplitResponse {
	resp := &SplitResponse{
		ID:         s.ID,
		ExpenseID:  s.ExpenseID,
		UserID:     s.UserID,
		Email:      s.Email,
		Name:       s.Name,
		AmountOwed: s.AmountOwed,
		IsPaid:     s.IsPaid,
	}
	if s.PaidAt != nil {
		paidAt := s.PaidAt.UTC().Format(timestampLayout)
		resp.PaidAt = &paidAt
	}
	return resp
}

// ToResponse converts a PayResult to its API representation
func (r *PayResult) ToResponse() *PayResponse {
	resp := &PayResponse{
		Split:   r.Split.ToResponse(),
		Message: r.Message,
	}
	if r.Payment != nil {
		resp.Payment = r.Payment.ToResponse()
	}
	return resp
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
