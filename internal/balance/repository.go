package balance

import (
	"context"
	"fmt"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

// Repository reads the split ledger of a group
type Repository struct {
	db database.Querier
}

// NewRepository creates a new balance repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// ledger returns every split of the group's expenses with payer and debtor
// details, ordered by expense.
func (r *Repository) ledger(ctx context.Context, groupID int64) ([]*ledgerLine, error) {
	query := `
		SELECT e.id, e.amount, e.paid_by, p.email, p.name,
		       s.user_id, d.email, d.name, s.amount_owed, s.is_paid
		FROM expense_splits s
		JOIN group_expenses e ON e.id = s.expense_id
		JOIN users p ON p.id = e.paid_by
		JOIN users d ON d.id = s.user_id
		WHERE e.group_id = $1
		ORDER BY e.id, s.id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group ledger: %w", err)
	}
	defer rows.Close()

	lines := make([]*ledgerLine, 0)
	for rows.Next() {
		l := &ledgerLine{}
		if err := rows.Scan(
			&l.ExpenseID,
			&l.ExpenseAmount,
			&l.PayerID,
			&l.PayerEmail,
			&l.PayerName,
			&l.DebtorID,
			&l.DebtorEmail,
			&l.DebtorName,
			&l.AmountOwed,
			&l.IsPaid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get group ledger: %w", err)
	}

	return lines, nil
}
