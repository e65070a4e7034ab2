package balance

import "github.com/shopspring/decimal"

// GroupBalancesResponse is the balance sheet of a group
type GroupBalancesResponse struct {
	GroupID  int64            `json:"group_id"`
	Currency string           `json:"currency"`
	Members  []*MemberBalance `json:"members"`
	Debts    []*Debt          `json:"debts"`
	You      []*NetBalance    `json:"you"`
}

// NetBalance is the caller's netted position with another member
type NetBalance struct {
	UserID  int64           `json:"user_id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"` // Positive = you owe them, negative = they owe you
	Message string          `json:"message"`
}
