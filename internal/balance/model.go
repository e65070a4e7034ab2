package balance

import "github.com/shopspring/decimal"

// MemberBalance summarises one user's position in a group
type MemberBalance struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`

	// TotalPaid is what the user paid for group expenses; TotalShare is the
	// sum of the user's own splits.
	TotalPaid  decimal.Decimal `json:"total_paid"`
	TotalShare decimal.Decimal `json:"total_share"`

	// OwedToThem and TheyOwe only count unpaid splits
	OwedToThem decimal.Decimal `json:"owed_to_them"`
	TheyOwe    decimal.Decimal `json:"they_owe"`
	Net        decimal.Decimal `json:"net"` // Positive = others owe this user
}

// Debt is the netted unpaid amount one user owes another
type Debt struct {
	FromUserID int64           `json:"from_user_id"`
	FromName   string          `json:"from_name"`
	ToUserID   int64           `json:"to_user_id"`
	ToName     string          `json:"to_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// ledgerLine is one split joined with its expense
type ledgerLine struct {
	ExpenseID     int64
	ExpenseAmount decimal.Decimal
	PayerID       int64
	PayerEmail    string
	PayerName     string
	DebtorID      int64
	DebtorEmail   string
	DebtorName    string
	AmountOwed    decimal.Decimal
	IsPaid        bool
}
