// Package invitation implements the invite-and-join flow of groups.
package invitation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/user"
)

// Common errors
var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrAlreadyInvited     = errors.New("email already has a pending invitation to the group")
	ErrAlreadyMember      = errors.New("user is already a member of the group")
	ErrNotPending         = errors.New("invitation already answered")
	ErrNotInvitee         = errors.New("invitation was sent to a different email address")
	ErrUserNotFound       = errors.New("user not found")
)

// Notifier tells an invitee about their invitation
type Notifier interface {
	NotifyInvitation(ctx context.Context, recipientID *int64, email, inviterName, groupName string, invitationID int64) error
}

// Service handles invitation business logic
type Service struct {
	repo      *Repository
	groups    *group.Repository
	authority *group.Authority
	users     *user.Repository
	notifier  Notifier
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a new invitation service. notifier and publisher may be nil.
func NewService(repo *Repository, groups *group.Repository, users *user.Repository, notifier Notifier, publisher events.Publisher, log logrus.FieldLogger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		groups:    groups,
		authority: group.NewAuthority(groups),
		users:     users,
		notifier:  notifier,
		publisher: publisher,
		log:       log.WithField("component", "invitation"),
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) getGroup(ctx context.Context, groupID int64) (*group.Group, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}
	return g, nil
}

// Invite invites email to the group. The caller must be a member; the
// invitee must not be a member already nor hold a pending invitation.
func (s *Service) Invite(ctx context.Context, groupID, callerID int64, req *CreateInvitationRequest) (*Invitation, error) {
	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.authority.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)

	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee != nil {
		member, err := s.groups.GetMember(ctx, groupID, invitee.ID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			return nil, ErrAlreadyMember
		}
	}

	pending, err := s.repo.HasPending(ctx, groupID, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrAlreadyInvited
	}

	inv, err := s.repo.Create(ctx, groupID, callerID, email, req.Message)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"group_id":      groupID,
		"invitation_id": inv.ID,
		"user_id":       callerID,
	}).Info("invitation sent")

	if s.notifier != nil {
		var recipientID *int64
		if invitee != nil {
			recipientID = &invitee.ID
		}
		inviterName := inviter.Name
		if inviterName == "" {
			inviterName = inviter.Email
		}
		if err := s.notifier.NotifyInvitation(ctx, recipientID, email, inviterName, g.Name, inv.ID); err != nil {
			s.log.WithError(err).WithField("invitation_id", inv.ID).Warn("failed to notify invitee")
		}
	}

	return inv, nil
}

// ListMine returns the pending invitations addressed to the caller's email
func (s *Service) ListMine(ctx context.Context, callerID int64) ([]*Invitation, error) {
	u, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPendingByEmail(ctx, normalizeEmail(u.Email))
}

// ListForGroup returns a group's pending invitations; members only
func (s *Service) ListForGroup(ctx context.Context, groupID, callerID int64) ([]*Invitation, error) {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.authority.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListPendingByGroup(ctx, groupID)
}

func (s *Service) caller(ctx context.Context, callerID int64) (*user.User, error) {
	u, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// pendingFor loads an invitation the caller may answer
func (s *Service) pendingFor(ctx context.Context, invitationID int64, u *user.User) (*Invitation, error) {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}
	if inv.Email != normalizeEmail(u.Email) {
		return nil, ErrNotInvitee
	}
	if inv.Status != StatusPending {
		return nil, ErrNotPending
	}
	return inv, nil
}

// Accept joins the caller to the invited group as a plain member carrying
// their profile income. The status change and the membership are written in
// one transaction, so an invitation is accepted at most once.
func (s *Service) Accept(ctx context.Context, invitationID, callerID int64) (*Invitation, *group.Member, error) {
	u, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.pendingFor(ctx, invitationID, u)
	if err != nil {
		return nil, nil, err
	}

	var member *group.Member
	err = s.repo.db.WithTx(ctx, func(tx *database.Tx) error {
		invites := s.repo.WithTx(tx)
		groups := s.groups.WithTx(tx)

		g, err := groups.LockGroup(ctx, inv.GroupID)
		if err != nil {
			return err
		}
		if g == nil {
			return group.ErrGroupNotFound
		}

		ok, err := invites.Respond(ctx, inv.ID, StatusAccepted, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPending
		}

		existing, err := groups.GetMember(ctx, inv.GroupID, callerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyMember
		}

		member, err = groups.AddMember(ctx, inv.GroupID, callerID, group.MemberRoleMember, u.MonthlyIncome)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	inv.Status = StatusAccepted
	s.log.WithFields(logrus.Fields{
		"group_id":      inv.GroupID,
		"invitation_id": inv.ID,
		"user_id":       callerID,
	}).Info("invitation accepted")

	event := events.New(events.InvitationAccepted, callerID, inv.ToResponse()).ForGroup(inv.GroupID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("invitation_id", inv.ID).Warn("failed to publish event")
	}

	return inv, member, nil
}

// Reject declines a pending invitation addressed to the caller
func (s *Service) Reject(ctx context.Context, invitationID, callerID int64) (*Invitation, error) {
	u, err := s.caller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	inv, err := s.pendingFor(ctx, invitationID, u)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.Respond(ctx, inv.ID, StatusRejected, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPending
	}

	inv.Status = StatusRejected
	s.log.WithFields(logrus.Fields{
		"group_id":      inv.GroupID,
		"invitation_id": inv.ID,
		"user_id":       callerID,
	}).Info("invitation rejected")
	return inv, nil
}
