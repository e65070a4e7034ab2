package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email         string          `json:"email" validate:"required,email"`
	Name          string          `json:"name" validate:"required,min=1,max=100"`
	AvatarURL     *string         `json:"avatar_url,omitempty"`
	MonthlyIncome decimal.Decimal `json:"monthly_income" validate:"gte=0,lt=10000000000"`
}

// UpdateProfileRequest represents the request body for updating the caller's profile
type UpdateProfileRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	AvatarURL     *string          `json:"avatar_url,omitempty"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty" validate:"omitempty,gte=0,lt=10000000000"`
	Language      *string          `json:"language,omitempty" validate:"omitempty,oneof=es en"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	AvatarURL     *string         `json:"avatar_url,omitempty"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Language      string          `json:"language"`
	Currency      string          `json:"currency"`
	CreatedAt     string          `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		MonthlyIncome: u.MonthlyIncome,
		Language:      u.Language,
		Currency:      u.Currency,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
