package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

const invitationColumns = `i.id, i.group_id, i.invited_by, i.email, i.status, i.message, i.created_at, i.updated_at,
	g.name, COALESCE(NULLIF(u.name, ''), u.email)`

const invitationFrom = `
	FROM group_invitations i
	JOIN expense_groups g ON g.id = i.group_id
	JOIN users u ON u.id = i.invited_by
`

// Repository handles invitation persistence
type Repository struct {
	db *database.DB
	q  database.Querier
}

// NewRepository creates a new invitation repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, q: db}
}

// WithTx returns a repository whose queries run inside tx
func (r *Repository) WithTx(tx *database.Tx) *Repository {
	return &Repository{db: r.db, q: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner) (*Invitation, error) {
	i := &Invitation{}
	err := row.Scan(
		&i.ID,
		&i.GroupID,
		&i.InvitedBy,
		&i.Email,
		&i.Status,
		&i.Message,
		database.Time(&i.CreatedAt),
		database.Time(&i.UpdatedAt),
		&i.GroupName,
		&i.InviterName,
	)
	return i, err
}

// Create inserts a pending invitation
func (r *Repository) Create(ctx context.Context, groupID, invitedBy int64, email string, message *string) (*Invitation, error) {
	query := `
		INSERT INTO group_invitations (group_id, invited_by, email, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	if err := r.q.QueryRowContext(ctx, query, groupID, invitedBy, email, StatusPending, message).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	inv, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("failed to create invitation: invitation %d not found after insert", id)
	}
	return inv, nil
}

// GetByID retrieves an invitation by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + invitationFrom + `WHERE i.id = $1`

	inv, err := scanInvitation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// HasPending reports whether email already has a pending invitation to the group
func (r *Repository) HasPending(ctx context.Context, groupID int64, email string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM group_invitations
			WHERE group_id = $1 AND email = $2 AND status = $3
		)
	`
	if err := r.q.QueryRowContext(ctx, query, groupID, email, StatusPending).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending invitation: %w", err)
	}
	return exists, nil
}

// ListPendingByEmail retrieves the pending invitations addressed to email
func (r *Repository) ListPendingByEmail(ctx context.Context, email string) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + invitationFrom + `
		WHERE i.email = $1 AND i.status = $2
		ORDER BY i.created_at DESC, i.id DESC
	`
	return r.list(ctx, query, email, StatusPending)
}

// ListPendingByGroup retrieves the pending invitations of a group
func (r *Repository) ListPendingByGroup(ctx context.Context, groupID int64) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + invitationFrom + `
		WHERE i.group_id = $1 AND i.status = $2
		ORDER BY i.created_at DESC, i.id DESC
	`
	return r.list(ctx, query, groupID, StatusPending)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Invitation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := make([]*Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// Respond moves a pending invitation to status. It reports false when the
// invitation was no longer pending.
func (r *Repository) Respond(ctx context.Context, id int64, status Status, now time.Time) (bool, error) {
	query := `
		UPDATE group_invitations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query, id, status, now.UTC(), StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to update invitation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update invitation: %w", err)
	}
	return affected == 1, nil
}
