package expense

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/database/dbtest"
	"github.com/fkhayef/sharedexpenses/internal/expense/recurrence"
	"github.com/fkhayef/sharedexpenses/internal/expense/split"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/internal/notification"
	"github.com/fkhayef/sharedexpenses/internal/payment"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *database.DB
	svc      *Service
	payments *payment.Service
	notices  *notification.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log, _ := logtest.NewNullLogger()

	invoices := invoice.NewService(invoice.NewRepository(db), log)
	payments := payment.NewService(payment.NewRepository(db), invoices, log)
	notices := notification.NewService(notification.NewRepository(db), nil, log)

	svc := NewService(NewRepository(db), group.NewRepository(db), payments, log,
		WithNotifier(notices),
		WithInvoiceChecker(invoices),
	)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{db: db, svc: svc, payments: payments, notices: notices}
}

type failingAudit struct{}

func (failingAudit) RecordSplitPayment(context.Context, int64, decimal.Decimal, string) (*payment.Payment, error) {
	return nil, errors.New("ledger unavailable")
}

func shareOf(t *testing.T, e *Expense, userID int64) *Split {
	t.Helper()
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s
		}
	}
	t.Fatalf("expense %d has no split for user %d", e.ID, userID)
	return nil
}

func TestService_CreateExpense_Equal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	cara := dbtest.CreateUser(t, f.db, "cara@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	dbtest.AddMember(t, f.db, groupID, cara, "member", 0)

	e, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description: " Dinner ",
		Amount:      decimal.NewFromInt(100),
		ExpenseDate: "2024-03-01",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if e.Description != "Dinner" || e.Currency != "UYU" || e.PaidBy != ana {
		t.Errorf("expense = %+v", e)
	}
	if got := e.ExpenseDate.Format("2006-01-02"); got != "2024-03-01" {
		t.Errorf("expense date = %s", got)
	}
	if len(e.Splits) != 3 {
		t.Fatalf("got %d splits, want 3", len(e.Splits))
	}

	sum := decimal.Zero
	for _, s := range e.Splits {
		sum = sum.Add(s.AmountOwed)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("splits sum to %s, want 100", sum)
	}

	payer := shareOf(t, e, ana)
	if !payer.AmountOwed.Equal(decimal.RequireFromString("33.34")) || !payer.IsPaid || payer.PaidAt == nil {
		t.Errorf("payer split = %+v, want 33.34 paid", payer)
	}
	for _, id := range []int64{ben, cara} {
		s := shareOf(t, e, id)
		if !s.AmountOwed.Equal(decimal.RequireFromString("33.33")) || s.IsPaid || s.PaidAt != nil {
			t.Errorf("split of %d = %+v, want 33.33 unpaid", id, s)
		}
		if s.Email == "" {
			t.Errorf("split of %d has no email", id)
		}
	}

	count, err := f.notices.GetUnreadCount(ctx, ben)
	if err != nil || count != 1 {
		t.Errorf("debtor unread count = %d, %v; want 1", count, err)
	}
	if count, _ := f.notices.GetUnreadCount(ctx, ana); count != 0 {
		t.Errorf("payer unread count = %d, want 0", count)
	}
}

func TestService_CreateExpense_Proportional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	cara := dbtest.CreateUser(t, f.db, "cara@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "proportional")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 3000)
	dbtest.AddMember(t, f.db, groupID, cara, "member", 1000)

	e, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description: "Rent",
		Amount:      decimal.NewFromInt(100),
		ExpenseDate: "2024-03-01",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	want := map[int64]string{ana: "0", ben: "75", cara: "25"}
	for id, amount := range want {
		if got := shareOf(t, e, id).AmountOwed; !got.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("share of %d = %s, want %s", id, got, amount)
		}
	}
}

func TestService_CreateExpense_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	outsider := dbtest.CreateUser(t, f.db, "outsider@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	monthly := recurrence.Monthly
	bogus := recurrence.Interval("hourly")
	missingInvoice := int64(42)

	tests := []struct {
		name    string
		groupID int64
		caller  int64
		req     CreateExpenseRequest
		wantErr error
	}{
		{"missing description", groupID, ana, CreateExpenseRequest{Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01"}, ErrMissingFields},
		{"missing amount", groupID, ana, CreateExpenseRequest{Description: "x", ExpenseDate: "2024-03-01"}, ErrMissingFields},
		{"missing date", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5)}, ErrMissingFields},
		{"negative amount", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(-5), ExpenseDate: "2024-03-01"}, split.ErrInvalidAmount},
		{"amount too large", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.RequireFromString("10000000000"), ExpenseDate: "2024-03-01"}, split.ErrInvalidAmount},
		{"fractional cents", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.RequireFromString("1.005"), ExpenseDate: "2024-03-01"}, split.ErrInvalidAmount},
		{"bad date", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "03/01/2024"}, ErrInvalidDate},
		{"recurring without interval", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01", IsRecurring: true}, ErrRecurrenceRequired},
		{"recurring with unknown interval", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01", IsRecurring: true, RecurrenceInterval: &bogus}, ErrRecurrenceRequired},
		{"not a member", groupID, outsider, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01", RecurrenceInterval: &monthly}, group.ErrForbidden},
		{"unknown group", 999, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01"}, group.ErrGroupNotFound},
		{"foreign invoice", groupID, ana, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(5), ExpenseDate: "2024-03-01", InvoiceID: &missingInvoice}, invoice.ErrInvoiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateExpense(ctx, tt.groupID, tt.caller, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateExpense() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	total, err := f.svc.repo.CountByGroup(ctx, groupID)
	if err != nil || total != 0 {
		t.Errorf("expenses stored after failures = %d, %v; want 0", total, err)
	}
}

func TestService_CreateExpense_RosterChangesBeforeInsert(t *testing.T) {
	tests := []struct {
		name      string
		leaver    func(ana, ben int64) int64
		caller    func(ana, ben int64) int64
		wantErr   error
		wantUsers func(ana, ben, cara int64) []int64
	}{
		{
			name:      "debtor leaves",
			leaver:    func(_, ben int64) int64 { return ben },
			caller:    func(ana, _ int64) int64 { return ana },
			wantUsers: func(ana, _, cara int64) []int64 { return []int64{ana, cara} },
		},
		{
			name:    "payer leaves",
			leaver:  func(_, ben int64) int64 { return ben },
			caller:  func(_, ben int64) int64 { return ben },
			wantErr: group.ErrNotMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			log, _ := logtest.NewNullLogger()
			groups := group.NewService(group.NewRepository(f.db), log)

			ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
			ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
			cara := dbtest.CreateUser(t, f.db, "cara@example.com", 0)
			groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
			dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
			dbtest.AddMember(t, f.db, groupID, cara, "member", 0)

			// The clock is read after the membership check and before the
			// expense is written; the departure lands in that window.
			var once sync.Once
			f.svc.now = func() time.Time {
				once.Do(func() {
					if _, err := groups.Leave(ctx, groupID, tt.leaver(ana, ben)); err != nil {
						t.Errorf("Leave() error = %v", err)
					}
				})
				return fixedNow
			}

			e, err := f.svc.CreateExpense(ctx, groupID, tt.caller(ana, ben), &CreateExpenseRequest{
				Description: "Groceries",
				Amount:      decimal.NewFromInt(90),
				ExpenseDate: "2024-03-01",
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateExpense() error = %v, want %v", err, tt.wantErr)
				}
				total, err := f.svc.repo.CountByGroup(ctx, groupID)
				if err != nil || total != 0 {
					t.Errorf("expenses = %d, %v; want 0", total, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateExpense() error = %v", err)
			}

			want := tt.wantUsers(ana, ben, cara)
			if len(e.Splits) != len(want) {
				t.Fatalf("got %d splits, want %d: %+v", len(e.Splits), len(want), e.Splits)
			}
			for _, id := range want {
				if s := shareOf(t, e, id); !s.AmountOwed.Equal(decimal.NewFromInt(45)) {
					t.Errorf("split of %d owes %s, want 45", id, s.AmountOwed)
				}
			}
			for _, s := range e.Splits {
				if s.UserID == ben {
					t.Errorf("departed member %d holds split %+v", ben, s)
				}
			}
		})
	}
}

func TestService_CreateExpense_Recurring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	monthly := recurrence.Monthly

	e, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description:        "Internet",
		Amount:             decimal.NewFromInt(30),
		ExpenseDate:        "2024-01-31",
		IsRecurring:        true,
		RecurrenceInterval: &monthly,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if e.NextOccurrence == nil || e.NextOccurrence.Format("2006-01-02") != "2024-03-02" {
		t.Errorf("next occurrence = %v, want 2024-03-02", e.NextOccurrence)
	}
}

func TestService_ListAndGetExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	outsider := dbtest.CreateUser(t, f.db, "outsider@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	otherGroup := dbtest.CreateGroup(t, f.db, outsider, "equal")

	for _, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		if _, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
			Description: "on " + date, Amount: decimal.NewFromInt(10), ExpenseDate: date,
		}); err != nil {
			t.Fatalf("CreateExpense(%s) error = %v", date, err)
		}
	}

	expenses, total, err := f.svc.ListExpenses(ctx, groupID, ben, 1, 2)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if total != 3 || len(expenses) != 2 {
		t.Fatalf("got %d of %d expenses, want 2 of 3", len(expenses), total)
	}
	if expenses[0].Description != "on 2024-03-01" || expenses[1].Description != "on 2024-02-01" {
		t.Errorf("order = %q, %q; want newest first", expenses[0].Description, expenses[1].Description)
	}
	for _, e := range expenses {
		if len(e.Splits) != 2 {
			t.Errorf("expense %d has %d splits, want 2", e.ID, len(e.Splits))
		}
	}

	if _, _, err := f.svc.ListExpenses(ctx, groupID, outsider, 1, 20); !errors.Is(err, group.ErrNotMember) {
		t.Errorf("ListExpenses(outsider) error = %v, want ErrNotMember", err)
	}

	got, err := f.svc.GetExpense(ctx, groupID, expenses[0].ID, ben)
	if err != nil || got.ID != expenses[0].ID {
		t.Fatalf("GetExpense() = %v, %v", got, err)
	}
	if _, err := f.svc.GetExpense(ctx, otherGroup, expenses[0].ID, outsider); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("GetExpense(other group) error = %v, want ErrExpenseNotFound", err)
	}
}

func TestService_MarkSplitPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)

	e, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description: "Taxi", Amount: decimal.RequireFromString("25.50"), ExpenseDate: "2024-03-01",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	benSplit := shareOf(t, e, ben)
	anaSplit := shareOf(t, e, ana)

	result, err := f.svc.MarkSplitPaid(ctx, groupID, e.ID, benSplit.ID, ben)
	if err != nil {
		t.Fatalf("MarkSplitPaid() error = %v", err)
	}
	if !result.Split.IsPaid || result.Split.PaidAt == nil {
		t.Errorf("split = %+v, want paid", result.Split)
	}
	if result.Message != "Payment recorded successfully" {
		t.Errorf("message = %q", result.Message)
	}
	if result.Payment == nil || result.Payment.UserID != ben || result.Payment.PaymentType != payment.TypeGroupExpense {
		t.Fatalf("audit payment = %+v", result.Payment)
	}
	if !result.Payment.AmountPaid.Equal(benSplit.AmountOwed) {
		t.Errorf("audit amount = %s, want %s", result.Payment.AmountPaid, benSplit.AmountOwed)
	}

	if count, _ := f.notices.GetUnreadCount(ctx, ana); count != 1 {
		t.Errorf("payer unread count = %d, want 1", count)
	}

	tests := []struct {
		name      string
		expenseID int64
		splitID   int64
		wantErr   error
	}{
		{"already paid", e.ID, benSplit.ID, ErrAlreadyPaid},
		{"payer split", e.ID, anaSplit.ID, ErrAlreadyPaid},
		{"unknown split", e.ID, 999, ErrSplitNotFound},
		{"unknown expense", 999, benSplit.ID, ErrExpenseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.MarkSplitPaid(ctx, groupID, tt.expenseID, tt.splitID, ana); !errors.Is(err, tt.wantErr) {
				t.Errorf("MarkSplitPaid() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	payments, total, err := f.payments.List(ctx, ben, 1, 20)
	if err != nil || total != 1 || len(payments) != 1 {
		t.Errorf("debtor payments = %d (%v), want exactly 1 audit record", total, err)
	}
}

func TestService_MarkSplitPaid_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	expenseID, splitID := dbtest.CreateDebt(t, f.db, groupID, ana, ben, "40")

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.MarkSplitPaid(ctx, groupID, expenseID, splitID, ben)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyPaid):
				conflicts++
			default:
				t.Errorf("MarkSplitPaid() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != callers-1 {
		t.Errorf("successes = %d, conflicts = %d; want 1 and %d", successes, conflicts, callers-1)
	}

	_, total, err := f.payments.List(ctx, ben, 1, 20)
	if err != nil || total != 1 {
		t.Errorf("audit records = %d, %v; want 1", total, err)
	}
}

func TestService_MarkSplitPaid_AuditFailure(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	log, _ := logtest.NewNullLogger()
	svc := NewService(NewRepository(db), group.NewRepository(db), failingAudit{}, log)

	ana := dbtest.CreateUser(t, db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, db, ana, "equal")
	dbtest.AddMember(t, db, groupID, ben, "member", 0)
	expenseID, splitID := dbtest.CreateDebt(t, db, groupID, ana, ben, "12.5")

	result, err := svc.MarkSplitPaid(ctx, groupID, expenseID, splitID, ana)
	if err != nil {
		t.Fatalf("MarkSplitPaid() error = %v", err)
	}
	if result.Payment != nil {
		t.Errorf("payment = %+v, want nil", result.Payment)
	}
	if result.Message != "Split marked as paid, but the payment record could not be saved" {
		t.Errorf("message = %q", result.Message)
	}

	stored, err := svc.repo.GetSplit(ctx, expenseID, splitID)
	if err != nil || stored == nil || !stored.IsPaid {
		t.Errorf("stored split = %+v, %v; want paid", stored, err)
	}
}
