// Package dbtest provides a migrated SQLite database and small fixtures for
// repository, service and handler tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

// New returns a freshly migrated SQLite database living in the test's temp dir
func New(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	if err := database.RunMigrations(database.DialectSQLite, path); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db, err := database.NewSQLiteConnection(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// CreateUser inserts a user with the given email and monthly income
func CreateUser(t *testing.T, db *database.DB, email string, income int64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO users (email, name, monthly_income) VALUES ($1, $2, $3) RETURNING id`,
		email, email, decimal.NewFromInt(income),
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return id
}

// CreateGroup inserts a group and makes the creator its admin
func CreateGroup(t *testing.T, db *database.DB, creatorID int64, splitMethod string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO expense_groups (name, currency, split_method, created_by) VALUES ($1, 'UYU', $2, $3) RETURNING id`,
		fmt.Sprintf("group-%d", creatorID), splitMethod, creatorID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	AddMember(t, db, id, creatorID, "admin", 0)
	return id
}

// AddMember inserts a membership row
func AddMember(t *testing.T, db *database.DB, groupID, userID int64, role string, income int64) {
	t.Helper()

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO group_members (group_id, user_id, role, monthly_income) VALUES ($1, $2, $3, $4)`,
		groupID, userID, role, decimal.NewFromInt(income),
	)
	if err != nil {
		t.Fatalf("failed to add member %d to group %d: %v", userID, groupID, err)
	}
}

// CreateDebt records an expense paid by payerID with a single unpaid split
// owed by debtorID, returning the expense and split ids.
func CreateDebt(t *testing.T, db *database.DB, groupID, payerID, debtorID int64, amount string) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	owed := decimal.RequireFromString(amount)

	var expenseID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO group_expenses (group_id, paid_by, description, amount, currency, expense_date)
		 VALUES ($1, $2, 'fixture', $3, 'UYU', '2024-01-15') RETURNING id`,
		groupID, payerID, owed,
	).Scan(&expenseID)
	if err != nil {
		t.Fatalf("failed to create expense: %v", err)
	}

	var splitID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO expense_splits (expense_id, user_id, amount_owed) VALUES ($1, $2, $3) RETURNING id`,
		expenseID, debtorID, owed,
	).Scan(&splitID)
	if err != nil {
		t.Fatalf("failed to create split: %v", err)
	}

	return expenseID, splitID
}

// MarkPaid flags a split as paid
func MarkPaid(t *testing.T, db *database.DB, splitID int64) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(),
		`UPDATE expense_splits SET is_paid = TRUE, paid_at = CURRENT_TIMESTAMP WHERE id = $1`, splitID); err != nil {
		t.Fatalf("failed to mark split %d paid: %v", splitID, err)
	}
}
