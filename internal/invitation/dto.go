package invitation

import "github.com/fkhayef/sharedexpenses/internal/group"

// CreateInvitationRequest represents the request to invite someone to a group
type CreateInvitationRequest struct {
	Email   string  `json:"email" validate:"required,email,max=255"`
	Message *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

// InvitationResponse represents the response for an invitation
type InvitationResponse struct {
	ID          int64   `json:"id"`
	GroupID     int64   `json:"group_id"`
	GroupName   string  `json:"group_name,omitempty"`
	InvitedBy   int64   `json:"invited_by"`
	InviterName string  `json:"inviter_name,omitempty"`
	Email       string  `json:"email"`
	Status      Status  `json:"status"`
	Message     *string `json:"message,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// AcceptResponse is returned when an invitation is accepted
type AcceptResponse struct {
	Invitation *InvitationResponse   `json:"invitation"`
	Member     *group.MemberResponse `json:"member"`
}

// ToResponse converts an Invitation model to an InvitationResponse DTO
func (i *Invitation) ToResponse() *InvitationResponse {
	return &InvitationResponse{
		ID:          i.ID,
		GroupID:     i.GroupID,
		GroupName:   i.GroupName,
		InvitedBy:   i.InvitedBy,
		InviterName: i.InviterName,
		Email:       i.Email,
		Status:      i.Status,
		Message:     i.Message,
		CreatedAt:   i.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
