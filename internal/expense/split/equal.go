package split

import "github.com/shopspring/decimal"

// EqualStrategy divides the expense equally among all members, payer included
type EqualStrategy struct{}

// Type returns the split method identifier
func (s *EqualStrategy) Type() Method {
	return MethodEqual
}

// Calculate gives every member amount / len(members)
func (s *EqualStrategy) Calculate(amount decimal.Decimal, members []Member) []decimal.Decimal {
	if len(members) == 0 {
		return nil
	}

	share := amount.Div(decimal.NewFromInt(int64(len(members))))
	out := make([]decimal.Decimal, len(members))
	for i := range members {
		out[i] = share
	}
	return out
}
