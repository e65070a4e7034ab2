package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID            int64           `json:"id"`
	ExternalID    *string         `json:"-"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	AvatarURL     *string         `json:"avatar_url,omitempty"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Language      string          `json:"language"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
