package group

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/sharedexpenses/internal/expense/split"
)

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name        string       `json:"name" validate:"required,min=1,max=100"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=500"`
	Currency    string       `json:"currency" validate:"omitempty,len=3"`
	SplitMethod split.Method `json:"split_method" validate:"omitempty,oneof=equal proportional"`
}

// UpdateGroupRequest represents the request to update a group. The split
// method cannot be changed after creation.
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Currency    *string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// UpdateMemberRequest changes a member's role or their own declared income
type UpdateMemberRequest struct {
	Role          *MemberRole      `json:"role,omitempty" validate:"omitempty,oneof=admin member"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty" validate:"omitempty,gte=0,lt=10000000000"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Currency    string            `json:"currency"`
	SplitMethod split.Method      `json:"split_method"`
	CreatedBy   int64             `json:"created_by"`
	CreatedAt   string            `json:"created_at"`
	Role        MemberRole        `json:"role,omitempty"`
	MemberCount int               `json:"member_count,omitempty"`
	Members     []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Role          MemberRole      `json:"role"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	JoinedAt      string          `json:"joined_at"`
}

// LeaveResponse is returned after the caller left a group
type LeaveResponse struct {
	Success      bool `json:"success"`
	GroupDeleted bool `json:"group_deleted"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Currency:    g.Currency,
		SplitMethod: g.SplitMethod,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt.UTC().Format(time.RFC3339),
		Role:        g.Role,
		MemberCount: g.MemberCount,
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		Email:         m.Email,
		Name:          m.Name,
		Role:          m.Role,
		MonthlyIncome: m.MonthlyIncome,
		JoinedAt:      m.JoinedAt.UTC().Format(time.RFC3339),
	}
}

func membersToResponse(members []*Member) []*MemberResponse {
	out := make([]*MemberResponse, len(members))
	for i, m := range members {
		out[i] = m.ToResponse()
	}
	return out
}
