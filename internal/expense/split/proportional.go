package split

import "github.com/shopspring/decimal"

// ProportionalStrategy divides the expense by each member's share of the
// group's total monthly income.
type ProportionalStrategy struct{}

// Type returns the split method identifier
func (s *ProportionalStrategy) Type() Method {
	return MethodProportional
}

// Calculate gives every member amount * income / totalIncome. A group whose
// total income is zero falls back to an equal split.
func (s *ProportionalStrategy) Calculate(amount decimal.Decimal, members []Member) []decimal.Decimal {
	totalIncome := decimal.Zero
	for _, m := range members {
		totalIncome = totalIncome.Add(m.MonthlyIncome)
	}

	if !totalIncome.IsPositive() {
		return (&EqualStrategy{}).Calculate(amount, members)
	}

	out := make([]decimal.Decimal, len(members))
	for i, m := range members {
		out[i] = amount.Mul(m.MonthlyIncome).Div(totalIncome)
	}
	return out
}
