package split

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Method defines how a group divides its expenses
type Method string

const (
	MethodEqual        Method = "equal"
	MethodProportional Method = "proportional"
)

// Valid reports whether m is a known split method
func (m Method) Valid() bool {
	return m == MethodEqual || m == MethodProportional
}

// Member is one roster entry the split is computed over
type Member struct {
	UserID        int64
	MonthlyIncome decimal.Decimal
}

// Share is the computed split for a single member
type Share struct {
	UserID     int64           `json:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	IsPaid     bool            `json:"is_paid"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Calculate returns each member's unrounded portion of amount, in roster order
	Calculate(amount decimal.Decimal, members []Member) []decimal.Decimal

	// Type returns the method this strategy implements
	Type() Method
}

// Factory creates split strategies based on the group's method
type Factory struct{}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy for method. Unknown methods get the equal
// strategy so that a group always resolves a split.
func (f *Factory) Create(method Method) Strategy {
	switch method {
	case MethodProportional:
		return &ProportionalStrategy{}
	default:
		return &EqualStrategy{}
	}
}

// MaxAmount is the largest amount a NUMERIC(12,2) money column holds
var MaxAmount = decimal.RequireFromString("9999999999.99")

var (
	ErrNoMembers      = errors.New("at least one member is required to split an expense")
	ErrPayerNotMember = errors.New("payer must be a member of the group")
	ErrInvalidAmount  = errors.New("amount must be positive, at most 9999999999.99, with at most two decimal places")
	ErrNegativeIncome = errors.New("monthly income cannot be negative")
)

// ValidAmount reports whether amount is a storable positive money value
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2)) && amount.LessThanOrEqual(MaxAmount)
}

// ComputeSplits divides amount over members using method. It returns one
// share per member in roster order; the payer's share is already paid at now.
//
// Shares are rounded half-up to cents and the rounding residual is added to
// the payer's share, so the shares always sum to amount exactly.
func (f *Factory) ComputeSplits(amount decimal.Decimal, payerID int64, members []Member, method Method, now time.Time) ([]Share, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	payerIdx := -1
	for i, m := range members {
		if m.MonthlyIncome.IsNegative() {
			return nil, ErrNegativeIncome
		}
		if m.UserID == payerID && payerIdx < 0 {
			payerIdx = i
		}
	}
	if payerIdx < 0 {
		return nil, ErrPayerNotMember
	}

	raw := f.Create(method).Calculate(amount, members)

	owed := make([]decimal.Decimal, len(raw))
	total := decimal.Zero
	for i, v := range raw {
		owed[i] = v.Round(2)
		total = total.Add(owed[i])
	}
	absorbResidual(owed, payerIdx, amount.Sub(total))

	paidAt := now
	shares := make([]Share, len(members))
	for i, m := range members {
		shares[i] = Share{
			UserID:     m.UserID,
			AmountOwed: owed[i],
		}
		if i == payerIdx {
			shares[i].IsPaid = true
			shares[i].PaidAt = &paidAt
		}
	}

	return shares, nil
}

// ComputeSplits is Factory.ComputeSplits on a default factory
func ComputeSplits(amount decimal.Decimal, payerID int64, members []Member, method Method, now time.Time) ([]Share, error) {
	return NewSplitStrategyFactory().ComputeSplits(amount, payerID, members, method, now)
}

// absorbResidual adds residual to the payer's share. When that would push
// the payer below zero the shortfall is taken from the other shares in roster
// order, so no share is ever negative.
func absorbResidual(owed []decimal.Decimal, payerIdx int, residual decimal.Decimal) {
	owed[payerIdx] = owed[payerIdx].Add(residual)
	if !owed[payerIdx].IsNegative() {
		return
	}

	deficit := owed[payerIdx].Neg()
	owed[payerIdx] = decimal.Zero
	for i := range owed {
		if i == payerIdx || deficit.IsZero() {
			continue
		}
		take := decimal.Min(owed[i], deficit)
		owed[i] = owed[i].Sub(take)
		deficit = deficit.Sub(take)
	}
}
