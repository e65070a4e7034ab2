package expense

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database/dbtest"
	"github.com/fkhayef/sharedexpenses/internal/expense/recurrence"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	daily := recurrence.Daily

	src, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description:        "Coffee",
		Amount:             decimal.NewFromInt(4),
		ExpenseDate:        "2024-03-01",
		IsRecurring:        true,
		RecurrenceInterval: &daily,
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	p := NewRecurringProcessor(f.svc)

	created, err := p.ProcessDue(ctx, day("2024-03-04"))
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3", created)
	}

	expenses, total, err := f.svc.ListExpenses(ctx, groupID, ana, 1, 20)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}

	wantDates := []string{"2024-03-04", "2024-03-03", "2024-03-02", "2024-03-01"}
	for i, e := range expenses {
		if got := e.ExpenseDate.Format("2006-01-02"); got != wantDates[i] {
			t.Errorf("expense %d date = %s, want %s", i, got, wantDates[i])
		}
		if len(e.Splits) != 2 || !shareOf(t, e, ben).AmountOwed.Equal(decimal.NewFromInt(2)) {
			t.Errorf("expense %d splits = %+v", e.ID, e.Splits)
		}
	}
	if latest := expenses[0]; latest.NextOccurrence == nil || latest.NextOccurrence.Format("2006-01-02") != "2024-03-05" {
		t.Errorf("latest next occurrence = %v, want 2024-03-05", latest.NextOccurrence)
	}
	if expenses[3].ID != src.ID {
		t.Errorf("oldest expense = %d, want source %d", expenses[3].ID, src.ID)
	}

	again, err := p.ProcessDue(ctx, day("2024-03-04"))
	if err != nil || again != 0 {
		t.Errorf("second ProcessDue() = %d, %v; want 0", again, err)
	}
}

func TestRecurringProcessor_FollowsCurrentRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	monthly := recurrence.Monthly

	if _, err := f.svc.CreateExpense(ctx, groupID, ana, &CreateExpenseRequest{
		Description:        "Rent",
		Amount:             decimal.NewFromInt(900),
		ExpenseDate:        "2024-01-31",
		IsRecurring:        true,
		RecurrenceInterval: &monthly,
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)

	created, err := NewRecurringProcessor(f.svc).ProcessDue(ctx, day("2024-03-05"))
	if err != nil || created != 1 {
		t.Fatalf("ProcessDue() = %d, %v; want 1", created, err)
	}

	expenses, _, err := f.svc.ListExpenses(ctx, groupID, ana, 1, 20)
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	occurrence := expenses[0]
	if got := occurrence.ExpenseDate.Format("2006-01-02"); got != "2024-03-02" {
		t.Errorf("occurrence date = %s, want 2024-03-02", got)
	}
	if len(occurrence.Splits) != 2 || !shareOf(t, occurrence, ben).AmountOwed.Equal(decimal.NewFromInt(450)) {
		t.Errorf("occurrence splits = %+v, want 450 each", occurrence.Splits)
	}
}

func TestRecurringProcessor_SkipsDepartedPayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	weekly := recurrence.Weekly

	if _, err := f.svc.CreateExpense(ctx, groupID, ben, &CreateExpenseRequest{
		Description:        "Cleaning",
		Amount:             decimal.NewFromInt(20),
		ExpenseDate:        "2024-03-01",
		IsRecurring:        true,
		RecurrenceInterval: &weekly,
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	if _, err := f.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, ben); err != nil {
		t.Fatalf("failed to remove member: %v", err)
	}

	created, err := NewRecurringProcessor(f.svc).ProcessDue(ctx, day("2024-03-20"))
	if err != nil || created != 0 {
		t.Errorf("ProcessDue() = %d, %v; want 0", created, err)
	}

	total, err := f.svc.repo.CountByGroup(ctx, groupID)
	if err != nil || total != 1 {
		t.Errorf("expenses = %d, %v; want only the source", total, err)
	}
}

func TestRepository_ClaimOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	source, _ := dbtest.CreateDebt(t, f.db, groupID, ana, ana, "10")
	first, _ := dbtest.CreateDebt(t, f.db, groupID, ana, ana, "10")
	second, _ := dbtest.CreateDebt(t, f.db, groupID, ana, ana, "10")

	claimed, err := f.svc.repo.ClaimOccurrence(ctx, source, first, day("2024-02-15"))
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v; want true", claimed, err)
	}
	claimed, err = f.svc.repo.ClaimOccurrence(ctx, source, second, day("2024-02-15"))
	if err != nil || claimed {
		t.Errorf("second claim = %v, %v; want false", claimed, err)
	}
}
