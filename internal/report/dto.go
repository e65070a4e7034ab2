package report

import "github.com/shopspring/decimal"

// DashboardResponse is the personal overview of a user's spending
type DashboardResponse struct {
	TotalInvoices        int              `json:"total_invoices"`
	PendingInvoices      int              `json:"pending_payments"`
	TotalGroupExpenses   int              `json:"total_group_expenses"`
	PendingGroupPayments int              `json:"pending_group_payments"`
	TotalPending         decimal.Decimal  `json:"total_pending"`
	TotalExpenses        decimal.Decimal  `json:"total_expenses"`
	TotalPaid            decimal.Decimal  `json:"total_paid"`
	MonthlyIncome        decimal.Decimal  `json:"monthly_income"`
	CurrentMonthExpenses decimal.Decimal  `json:"current_month_expenses"`
	RemainingBudget      decimal.Decimal  `json:"remaining_budget"`
	PercentageUsed       decimal.Decimal  `json:"percentage_used"`
	MonthlyData          []*MonthlyBucket `json:"monthly_data"`
	DailyData            []*DailyBucket   `json:"daily_data"`
}

// MonthlyBucket holds one calendar month of spending against income
type MonthlyBucket struct {
	Month    string          `json:"month"`
	Expenses decimal.Decimal `json:"expenses"`
	Income   decimal.Decimal `json:"income"`
	Balance  decimal.Decimal `json:"balance"`
}

// DailyBucket holds one day of spending
type DailyBucket struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// SummaryResponse aggregates invoices in a date range and all payments
type SummaryResponse struct {
	TotalInvoices      int             `json:"total_invoices"`
	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	PartialAmount      decimal.Decimal `json:"partial_amount"`
	TotalPayments      int             `json:"total_payments"`
	PaymentsByType     map[string]int  `json:"payment_by_type"`
	MonthlySummary     []*MonthlyTotal `json:"monthly_summary"`
}

// MonthlyTotal is the invoiced amount of one month
type MonthlyTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoriesResponse breaks pending invoices down by category
type CategoriesResponse struct {
	Categories []*CategoryTotal `json:"categories"`
	Total      decimal.Decimal  `json:"total"`
}

// CategoryTotal is the pending amount of one category
type CategoryTotal struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}
