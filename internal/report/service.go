// Package report builds the personal spending aggregates: the dashboard,
// the invoice summary and the pending-by-category breakdown.
package report

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/internal/payment"
	"github.com/fkhayef/sharedexpenses/internal/user"
)

const (
	dashboardMonths = 6
	dashboardDays   = 30

	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"

	uncategorized = "other"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidDateRange = errors.New("start date must not be after end date")
)

var hundred = decimal.NewFromInt(100)

// Service handles report business logic
type Service struct {
	repo  *Repository
	users *user.Repository
	log   logrus.FieldLogger
}

// NewService creates a new report service
func NewService(repo *Repository, users *user.Repository, log logrus.FieldLogger) *Service {
	return &Service{
		repo:  repo,
		users: users,
		log:   log.WithField("component", "report"),
	}
}

// Dashboard summarises the user's invoices, payments and group shares as
// seen at now. The four reads run concurrently.
func (s *Service) Dashboard(ctx context.Context, userID int64, now time.Time) (*DashboardResponse, error) {
	var (
		u        *user.User
		invoices []*invoiceLine
		payments []*paymentLine
		splits   []*splitLine
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.repo.invoices(gctx, userID, invoiceFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.repo.payments(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		splits, err = s.repo.splits(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	d := &DashboardResponse{
		TotalInvoices:      len(invoices),
		TotalGroupExpenses: len(splits),
		MonthlyIncome:      u.MonthlyIncome,
	}

	invoiced := decimal.Zero
	for _, inv := range invoices {
		invoiced = invoiced.Add(inv.Amount)
		if inv.Status == string(invoice.StatusPending) {
			d.PendingInvoices++
		}
	}

	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == string(payment.StatusCompleted) {
			paid = paid.Add(p.AmountPaid)
		}
	}

	shared, unpaidShares := decimal.Zero, decimal.Zero
	for _, sp := range splits {
		shared = shared.Add(sp.AmountOwed)
		if !sp.IsPaid {
			d.PendingGroupPayments++
			unpaidShares = unpaidShares.Add(sp.AmountOwed)
		}
	}

	d.TotalPaid = paid
	d.TotalPending = invoiced.Sub(paid).Add(unpaidShares)
	d.TotalExpenses = invoiced.Add(shared)

	d.MonthlyData, d.DailyData = buckets(now, u.MonthlyIncome, invoices, splits)

	d.CurrentMonthExpenses = d.MonthlyData[len(d.MonthlyData)-1].Expenses
	d.RemainingBudget = u.MonthlyIncome.Sub(d.CurrentMonthExpenses)
	d.PercentageUsed = decimal.Zero
	if u.MonthlyIncome.IsPositive() {
		d.PercentageUsed = d.CurrentMonthExpenses.Div(u.MonthlyIncome).Mul(hundred).Round(1)
	}

	return d, nil
}

// buckets spreads invoices and shares over the last months and days ending
// at now. Rows outside the windows are ignored.
func buckets(now time.Time, income decimal.Decimal, invoices []*invoiceLine, splits []*splitLine) ([]*MonthlyBucket, []*DailyBucket) {
	months := make([]*MonthlyBucket, 0, dashboardMonths)
	byMonth := make(map[string]*MonthlyBucket, dashboardMonths)
	for i := dashboardMonths - 1; i >= 0; i-- {
		first := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		b := &MonthlyBucket{Month: first.Format(monthLayout), Expenses: decimal.Zero}
		months = append(months, b)
		byMonth[b.Month] = b
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := make([]*DailyBucket, 0, dashboardDays)
	byDay := make(map[string]*DailyBucket, dashboardDays)
	for i := dashboardDays - 1; i >= 0; i-- {
		b := &DailyBucket{Date: today.AddDate(0, 0, -i).Format(dayLayout), Amount: decimal.Zero}
		days = append(days, b)
		byDay[b.Date] = b
	}

	add := func(date time.Time, amount decimal.Decimal) {
		if b, ok := byMonth[date.Format(monthLayout)]; ok {
			b.Expenses = b.Expenses.Add(amount)
		}
		if b, ok := byDay[date.Format(dayLayout)]; ok {
			b.Amount = b.Amount.Add(amount)
		}
	}
	for _, inv := range invoices {
		add(inv.InvoiceDate, inv.Amount)
	}
	for _, sp := range splits {
		add(sp.ExpenseDate, sp.AmountOwed)
	}

	for _, b := range months {
		b.Income = income
		b.Balance = income.Sub(b.Expenses)
	}
	return months, days
}

// Summary aggregates the user's invoices dated within [from, to] by status
// and month, along with every payment they recorded. Either bound may be nil.
func (s *Service) Summary(ctx context.Context, userID int64, from, to *time.Time) (*SummaryResponse, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidDateRange
	}

	var (
		invoices []*invoiceLine
		payments []*paymentLine
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.repo.invoices(gctx, userID, invoiceFilter{From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.repo.payments(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &SummaryResponse{
		TotalInvoices:      len(invoices),
		TotalInvoiceAmount: decimal.Zero,
		PendingAmount:      decimal.Zero,
		PaidAmount:         decimal.Zero,
		PartialAmount:      decimal.Zero,
		TotalPayments:      len(payments),
		PaymentsByType:     make(map[string]int),
		MonthlySummary:     make([]*MonthlyTotal, 0),
	}

	byMonth := make(map[string]*MonthlyTotal)
	for _, inv := range invoices {
		summary.TotalInvoiceAmount = summary.TotalInvoiceAmount.Add(inv.Amount)
		switch invoice.Status(inv.Status) {
		case invoice.StatusPending:
			summary.PendingAmount = summary.PendingAmount.Add(inv.Amount)
		case invoice.StatusPaid:
			summary.PaidAmount = summary.PaidAmount.Add(inv.Amount)
		case invoice.StatusPartial:
			summary.PartialAmount = summary.PartialAmount.Add(inv.Amount)
		}

		key := inv.InvoiceDate.Format(monthLayout)
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyTotal{Month: key, Amount: decimal.Zero}
			byMonth[key] = m
			summary.MonthlySummary = append(summary.MonthlySummary, m)
		}
		m.Amount = m.Amount.Add(inv.Amount)
	}

	for _, p := range payments {
		summary.PaymentsByType[p.PaymentType]++
	}

	return summary, nil
}

// Categories totals the user's pending invoices per category, largest first.
// Invoices without a category count as "other".
func (s *Service) Categories(ctx context.Context, userID int64) (*CategoriesResponse, error) {
	invoices, err := s.repo.invoices(ctx, userID, invoiceFilter{Status: string(invoice.StatusPending)})
	if err != nil {
		return nil, err
	}

	resp := &CategoriesResponse{Categories: make([]*CategoryTotal, 0), Total: decimal.Zero}
	byName := make(map[string]*CategoryTotal)
	for _, inv := range invoices {
		name := uncategorized
		if inv.Category != nil && *inv.Category != "" {
			name = *inv.Category
		}
		c, ok := byName[name]
		if !ok {
			c = &CategoryTotal{Name: name, Value: decimal.Zero}
			byName[name] = c
			resp.Categories = append(resp.Categories, c)
		}
		c.Value = c.Value.Add(inv.Amount)
		resp.Total = resp.Total.Add(inv.Amount)
	}

	sort.SliceStable(resp.Categories, func(i, j int) bool {
		a, b := resp.Categories[i], resp.Categories[j]
		if !a.Value.Equal(b.Value) {
			return a.Value.GreaterThan(b.Value)
		}
		return a.Name < b.Name
	})

	return resp, nil
}
