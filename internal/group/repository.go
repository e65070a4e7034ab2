package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

const groupColumns = `g.id, g.name, g.description, g.currency, g.split_method, g.created_by, g.created_at, g.updated_at`

const groupReturning = `id, name, description, currency, split_method, created_by, created_at, updated_at`

const memberColumns = `gm.id, gm.group_id, gm.user_id, gm.role, gm.monthly_income, gm.joined_at, u.email, u.name`

// Repository handles group and membership persistence
type Repository struct {
	db *database.DB
	q  database.Querier
}

// NewRepository creates a new group repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithTx returns a repository whose queries run inside tx
func (r *Repository) WithTx(tx *database.Tx) *Repository {
	return &Repository{db: r.db, q: tx}
}

// InTx runs fn with a transactional repository
func (r *Repository) InTx(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(r.WithTx(tx))
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner, extra ...any) (*Group, error) {
	g := &Group{}
	dest := append([]any{
		&g.ID,
		&g.Name,
		&g.Description,
		&g.Currency,
		&g.SplitMethod,
		&g.CreatedBy,
		database.Time(&g.CreatedAt),
		database.Time(&g.UpdatedAt),
	}, extra...)
	return g, row.Scan(dest...)
}

func scanMember(row scanner) (*Member, error) {
	m := &Member{}
	err := row.Scan(
		&m.ID,
		&m.GroupID,
		&m.UserID,
		&m.Role,
		&m.MonthlyIncome,
		database.Time(&m.JoinedAt),
		&m.Email,
		&m.Name,
	)
	return m, err
}

// Create inserts a new group into the database
func (r *Repository) Create(ctx context.Context, g *Group) (*Group, error) {
	query := `
		INSERT INTO expense_groups (name, description, currency, split_method, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + groupReturning

	created, err := scanGroup(r.q.QueryRowContext(ctx, query, g.Name, g.Description, g.Currency, g.SplitMethod, g.CreatedBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return created, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM expense_groups g WHERE g.id = $1`

	g, err := scanGroup(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// LockGroup loads a group and, on Postgres, holds its row lock until the
// surrounding transaction ends. Roster changes and expense inserts take it
// first so their membership checks run against a roster nobody else is
// changing. SQLite transactions are serializable and need no explicit lock.
// Returns nil when the group does not exist.
func (r *Repository) LockGroup(ctx context.Context, id int64) (*Group, error) {
	g, err := scanGroup(r.q.QueryRowContext(ctx, lockGroupQuery(r.db.Dialect()), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	return g, nil
}

func lockGroupQuery(dialect database.Dialect) string {
	query := `SELECT ` + groupColumns + ` FROM expense_groups g WHERE g.id = $1`
	if dialect == database.DialectPostgres {
		query += ` FOR UPDATE`
	}
	return query
}

// ListByUserID retrieves the groups a user belongs to, with their role and
// the member count of each group.
func (r *Repository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*Group, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM group_members WHERE user_id = $1`
	if err := r.q.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `
		SELECT ` + groupColumns + `, gm.role,
		       (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id) AS member_count
		FROM expense_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*Group, 0)
	for rows.Next() {
		var (
			role  MemberRole
			count int
		)
		g, err := scanGroup(rows, &role, &count)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		g.Role = role
		g.MemberCount = count
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, total, nil
}

// Update modifies an existing group
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateGroupRequest, now time.Time) (*Group, error) {
	query := `
		UPDATE expense_groups
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    currency = COALESCE($4, currency),
		    updated_at = $5
		WHERE id = $1
		RETURNING ` + groupReturning

	g, err := scanGroup(r.q.QueryRowContext(ctx, query, id, req.Name, req.Description, req.Currency, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	return g, nil
}

// Delete removes a group; members, invitations, expenses and splits cascade
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM expense_groups WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// AddMember adds a user to a group
func (r *Repository) AddMember(ctx context.Context, groupID, userID int64, role MemberRole, income decimal.Decimal) (*Member, error) {
	query := `
		INSERT INTO group_members (group_id, user_id, role, monthly_income)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.q.ExecContext(ctx, query, groupID, userID, role, income); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	member, err := r.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("failed to add member: membership of user %d in group %d not found after insert", userID, groupID)
	}
	return member, nil
}

// GetMember retrieves a specific member from a group
func (r *Repository) GetMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1 AND gm.user_id = $2
	`

	m, err := scanMember(r.q.QueryRowContext(ctx, query, groupID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves all members of a group ordered by join time
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, gm.id
	`

	rows, err := r.q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	members := make([]*Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	return members, nil
}

// CountMembers returns the number of members in a group
func (r *Repository) CountMembers(ctx context.Context, groupID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = $1`, groupID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// CountAdmins returns the number of admins in a group
func (r *Repository) CountAdmins(ctx context.Context, groupID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND role = $2`
	if err := r.q.QueryRowContext(ctx, query, groupID, MemberRoleAdmin).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// UpdateMemberRole changes a member's role
func (r *Repository) UpdateMemberRole(ctx context.Context, groupID, userID int64, role MemberRole) error {
	query := `UPDATE group_members SET role = $3 WHERE group_id = $1 AND user_id = $2`
	if _, err := r.q.ExecContext(ctx, query, groupID, userID, role); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

// UpdateMemberIncome changes the income a member declared for one group
func (r *Repository) UpdateMemberIncome(ctx context.Context, groupID, userID int64, income decimal.Decimal) error {
	query := `UPDATE group_members SET monthly_income = $3 WHERE group_id = $1 AND user_id = $2`
	if _, err := r.q.ExecContext(ctx, query, groupID, userID, income); err != nil {
		return fmt.Errorf("failed to update member income: %w", err)
	}
	return nil
}

// UpdateIncomeForUser copies a user's income onto all their memberships and
// returns how many memberships changed.
func (r *Repository) UpdateIncomeForUser(ctx context.Context, userID int64, income decimal.Decimal) (int64, error) {
	result, err := r.q.ExecContext(ctx, `UPDATE group_members SET monthly_income = $2 WHERE user_id = $1`, userID, income)
	if err != nil {
		return 0, fmt.Errorf("failed to propagate income: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// RemoveMember removes a user from a group
func (r *Repository) RemoveMember(ctx context.Context, groupID, userID int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// HasUnpaidSplits reports whether the user owes any unpaid split on an
// expense of the group.
func (r *Repository) HasUnpaidSplits(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM expense_splits es
		JOIN group_expenses ge ON ge.id = es.expense_id
		WHERE ge.group_id = $1 AND es.user_id = $2 AND es.is_paid = FALSE
	`

	var n int
	if err := r.q.QueryRowContext(ctx, query, groupID, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check unpaid splits: %w", err)
	}
	return n > 0, nil
}
