// Package events publishes domain events about the ledger to a message
// broker. Publishing is best-effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event and doubles as its routing key
type Type string

const (
	ExpenseCreated     Type = "expense.created"
	ExpenseRecurred    Type = "expense.recurred"
	SplitPaid          Type = "split.paid"
	MemberLeft         Type = "group.member_left"
	InvitationAccepted Type = "invitation.accepted"
)

// Event is the envelope every message is published in
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	GroupID    *int64    `json:"group_id,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// New builds an event with a fresh id
func New(t Type, actorID int64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

// ForGroup scopes the event to a group
func (e Event) ForGroup(groupID int64) Event {
	e.GroupID = &groupID
	return e
}

// ToJSON encodes the event body
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events somewhere
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
