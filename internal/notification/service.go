package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	repo   *Repository
	mailer Mailer
	log    logrus.FieldLogger

	// outgoing counts e-mails still being delivered
	outgoing sync.WaitGroup
}

// NewService creates a new notification service. A nil mailer disables
// e-mail delivery.
func NewService(repo *Repository, mailer Mailer, log logrus.FieldLogger) *Service {
	if mailer == nil {
		mailer = NopMailer{}
	}
	return &Service{
		repo:   repo,
		mailer: mailer,
		log:    log.WithField("component", "notification"),
	}
}

// Create creates a new notification
func (s *Service) Create(ctx context.Context, recipientID int64, message string, entityType EntityType, entityID int64) (*Notification, error) {
	return s.repo.Create(ctx, recipientID, message, &entityType, &entityID)
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// ListByRecipientID retrieves a page of notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return ErrNotRecipient
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// NotifyExpenseAdded tells a member they owe a share of a new expense
func (s *Service) NotifyExpenseAdded(ctx context.Context, recipientID int64, payerName, description string, owed decimal.Decimal, currency string, expenseID int64) error {
	message := fmt.Sprintf("%s added %q and you owe %s %s", payerName, description, owed.StringFixed(2), currency)
	_, err := s.Create(ctx, recipientID, message, EntityExpense, expenseID)
	return err
}

// NotifySplitPaid tells the payer of an expense that a share was paid
func (s *Service) NotifySplitPaid(ctx context.Context, recipientID int64, debtorName string, amount decimal.Decimal, currency string, splitID int64) error {
	message := fmt.Sprintf("%s paid you %s %s", debtorName, amount.StringFixed(2), currency)
	_, err := s.Create(ctx, recipientID, message, EntitySplit, splitID)
	return err
}

// NotifyInvitation tells an invitee about a group invitation. Registered
// users get an in-app notification; everybody gets an e-mail, sent in the
// background.
func (s *Service) NotifyInvitation(ctx context.Context, recipientID *int64, email, inviterName, groupName string, invitationID int64) error {
	var err error
	if recipientID != nil {
		message := fmt.Sprintf("%s invited you to join %s", inviterName, groupName)
		_, err = s.Create(ctx, *recipientID, message, EntityInvitation, invitationID)
	}

	subject := "You have been invited to " + groupName
	body := fmt.Sprintf("<p>%s invited you to share expenses in <strong>%s</strong>.</p>",
		html.EscapeString(inviterName), html.EscapeString(groupName))
	s.sendMail(email, subject, body)

	return err
}

func (s *Service) sendMail(to, subject, body string) {
	s.outgoing.Add(1)
	go func() {
		defer s.outgoing.Done()
		if err := s.mailer.Send(to, subject, body); err != nil {
			s.log.WithError(err).WithField("to", to).Warn("failed to send notification email")
		}
	}()
}

// Shutdown waits for e-mails that are still being delivered. It returns the
// context's error if ctx ends first.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.outgoing.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
