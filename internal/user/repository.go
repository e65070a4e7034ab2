package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/database"
)

const userColumns = `id, external_id, email, name, avatar_url, monthly_income, language, currency, created_at, updated_at`

// Repository handles user data persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.MonthlyIncome,
		&u.Language,
		&u.Currency,
		database.Time(&u.CreatedAt),
		database.Time(&u.UpdatedAt),
	)
	return u, err
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, externalID *string, req *CreateUserRequest) (*User, error) {
	query := `
		INSERT INTO users (external_id, email, name, avatar_url, monthly_income)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, externalID, req.Email, req.Name, req.AvatarURL, req.MonthlyIncome))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by their (lower-cased) email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email = $1", email)
}

// GetByExternalID retrieves a user by their identity provider subject
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return r.getOne(ctx, "external_id = $1", externalID)
}

// LinkExternalID attaches an identity provider subject to an existing user
func (r *Repository) LinkExternalID(ctx context.Context, id int64, externalID string, now time.Time) error {
	query := `UPDATE users SET external_id = $2, updated_at = $3 WHERE id = $1 AND external_id IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id, externalID, now); err != nil {
		return fmt.Errorf("failed to link external id: %w", err)
	}
	return nil
}

// Update modifies the mutable profile fields of a user
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateProfileRequest, now time.Time) (*User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    avatar_url = COALESCE($3, avatar_url),
		    monthly_income = COALESCE($4, monthly_income),
		    language = COALESCE($5, language),
		    currency = COALESCE($6, currency),
		    updated_at = $7
		WHERE id = $1
		RETURNING ` + userColumns

	var income *decimal.Decimal
	if req.MonthlyIncome != nil {
		v := req.MonthlyIncome.Round(2)
		income = &v
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, req.Name, req.AvatarURL, income, req.Language, req.Currency, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}
