package invitation

import "time"

// Status is the lifecycle state of an invitation
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Invitation asks someone, identified by email, to join a group
type Invitation struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	InvitedBy int64     `json:"invited_by"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	Message   *string   `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated via JOIN
	GroupName   string `json:"group_name,omitempty"`
	InviterName string `json:"inviter_name,omitempty"`
}
