package notification

import "time"

// Notification is an in-app message addressed to one user
type Notification struct {
	ID                int64       `json:"id"`
	RecipientID       int64       `json:"recipient_id"`
	Message           string      `json:"message"`
	IsRead            bool        `json:"is_read"`
	RelatedEntityType *EntityType `json:"related_entity_type,omitempty"`
	RelatedEntityID   *int64      `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// EntityType names what a notification points at
type EntityType string

const (
	EntityExpense    EntityType = "EXPENSE"
	EntitySplit      EntityType = "SPLIT"
	EntityGroup      EntityType = "GROUP"
	EntityInvitation EntityType = "INVITATION"
)
