package group

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/expense/split"
)

// MemberRole represents the role of a group member
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Group represents an expense-sharing group
type Group struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Currency    string       `json:"currency"`
	SplitMethod split.Method `json:"split_method"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Populated when listed for a specific user
	Role        MemberRole `json:"role,omitempty"`
	MemberCount int        `json:"member_count,omitempty"`
}

// Member represents a user's membership in a group
type Member struct {
	ID            int64           `json:"id"`
	GroupID       int64           `json:"group_id"`
	UserID        int64           `json:"user_id"`
	Role          MemberRole      `json:"role"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	JoinedAt      time.Time       `json:"joined_at"`

	// Populated from JOIN
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// IsAdmin reports whether the member administers the group
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// Roster converts members into split engine input, keeping their order
func Roster(members []*Member) []split.Member {
	out := make([]split.Member, len(members))
	for i, m := range members {
		out[i] = split.Member{UserID: m.UserID, MonthlyIncome: m.MonthlyIncome}
	}
	return out
}
