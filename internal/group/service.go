package group

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/expense/split"
)

// Common errors
var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrRemoveSelf     = errors.New("use leave to remove yourself from a group")
)

const defaultCurrency = "UYU"

// Service handles group business logic
type Service struct {
	repo      *Repository
	authority *Authority
	publisher events.Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a new group service
func NewService(repo *Repository, log logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		authority: NewAuthority(repo),
		publisher: events.NopPublisher{},
		log:       log.WithField("component", "group"),
		now:       time.Now,
	}
}

// WithPublisher makes the service announce departures on p
func (s *Service) WithPublisher(p events.Publisher) *Service {
	if p != nil {
		s.publisher = p
	}
	return s
}

// Authority exposes the membership rules to other features
func (s *Service) Authority() *Authority {
	return s.authority
}

// Create creates a new group and adds the creator as its first admin in one
// transaction.
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Group, error) {
	g := &Group{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Currency:    strings.ToUpper(req.Currency),
		SplitMethod: req.SplitMethod,
		CreatedBy:   creatorID,
	}
	if g.Currency == "" {
		g.Currency = defaultCurrency
	}
	if !g.SplitMethod.Valid() {
		g.SplitMethod = split.MethodEqual
	}

	var created *Group
	err := s.repo.InTx(ctx, func(repo *Repository) error {
		var err error
		created, err = repo.Create(ctx, g)
		if err != nil {
			return err
		}
		_, err = repo.AddMember(ctx, created.ID, creatorID, MemberRoleAdmin, decimal.Zero)
		return err
	})
	if err != nil {
		return nil, err
	}

	created.Role = MemberRoleAdmin
	created.MemberCount = 1
	s.log.WithFields(logrus.Fields{"group_id": created.ID, "user_id": creatorID}).Info("group created")
	return created, nil
}

// Get returns a group with its members; the caller must be a member
func (s *Service) Get(ctx context.Context, id, callerID int64) (*Group, []*Member, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	caller, err := s.authority.RequireMember(ctx, id, callerID)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	g.Role = caller.Role
	g.MemberCount = len(members)
	return g, members, nil
}

func (s *Service) getGroup(ctx context.Context, id int64) (*Group, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// lockGroup takes the group's row lock in repo's transaction
func lockGroup(ctx context.Context, repo *Repository, id int64) error {
	g, err := repo.LockGroup(ctx, id)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGroupNotFound
	}
	return nil
}

// GetGroup returns a group for a caller who must be a member
func (s *Service) GetGroup(ctx context.Context, id, callerID int64) (*Group, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authority.RequireMember(ctx, id, callerID); err != nil {
		return nil, err
	}
	return g, nil
}

// ListByUserID retrieves all groups for a user
func (s *Service) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Group, int, error) {
	offset := (page - 1) * perPage
	return s.repo.ListByUserID(ctx, userID, perPage, offset)
}

// Update modifies an existing group; admin only
func (s *Service) Update(ctx context.Context, id, callerID int64, req *UpdateGroupRequest) (*Group, error) {
	if _, err := s.getGroup(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.authority.RequireAdmin(ctx, id, callerID); err != nil {
		return nil, err
	}

	if req.Currency != nil {
		c := strings.ToUpper(*req.Currency)
		req.Currency = &c
	}

	g, err := s.repo.Update(ctx, id, req, s.now())
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// Delete removes a group and everything in it; admin only
func (s *Service) Delete(ctx context.Context, id, callerID int64) error {
	if _, err := s.getGroup(ctx, id); err != nil {
		return err
	}
	if _, err := s.authority.RequireAdmin(ctx, id, callerID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrGroupNotFound
	}

	s.log.WithFields(logrus.Fields{"group_id": id, "user_id": callerID}).Info("group deleted")
	return nil
}

// ListMembers retrieves all members of a group; the caller must be a member
func (s *Service) ListMembers(ctx context.Context, groupID, callerID int64) ([]*Member, error) {
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.authority.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, groupID)
}

// UpdateMember changes a member's role (admins only, never leaving the group
// without an admin) or a member's own declared income. Runs under the group
// lock, so a concurrent leave or demotion cannot strip the last admin.
func (s *Service) UpdateMember(ctx context.Context, groupID, targetID, callerID int64, req *UpdateMemberRequest) (*Member, error) {
	var updated *Member
	err := s.repo.InTx(ctx, func(repo *Repository) error {
		if err := lockGroup(ctx, repo, groupID); err != nil {
			return err
		}
		auth := NewAuthority(repo)

		caller, err := auth.RequireMember(ctx, groupID, callerID)
		if err != nil {
			return err
		}

		target, err := repo.GetMember(ctx, groupID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}

		if req.MonthlyIncome != nil {
			if callerID != targetID {
				return ErrNotSelf
			}
			if err := repo.UpdateMemberIncome(ctx, groupID, targetID, req.MonthlyIncome.Round(2)); err != nil {
				return err
			}
		}

		if req.Role != nil && *req.Role != target.Role {
			if !caller.IsAdmin() {
				return ErrNotAdmin
			}
			if target.IsAdmin() {
				admins, err := repo.CountAdmins(ctx, groupID)
				if err != nil {
					return err
				}
				if admins <= 1 {
					return ErrSoleAdmin
				}
			}
			if err := repo.UpdateMemberRole(ctx, groupID, targetID, *req.Role); err != nil {
				return err
			}
		}

		updated, err = repo.GetMember(ctx, groupID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveMember removes another member from a group; admin only. The target
// must not hold unpaid splits in the group.
func (s *Service) RemoveMember(ctx context.Context, groupID, targetID, callerID int64) error {
	return s.repo.InTx(ctx, func(repo *Repository) error {
		if err := lockGroup(ctx, repo, groupID); err != nil {
			return err
		}
		if targetID == callerID {
			return ErrRemoveSelf
		}

		if _, err := NewAuthority(repo).RequireAdmin(ctx, groupID, callerID); err != nil {
			return err
		}

		unpaid, err := repo.HasUnpaidSplits(ctx, groupID, targetID)
		if err != nil {
			return err
		}
		if unpaid {
			return ErrHasUnpaidDebt
		}

		removed, err := repo.RemoveMember(ctx, groupID, targetID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrMemberNotFound
		}
		return nil
	})
}

// Leave removes the caller from a group after the leave guards pass. When the
// caller was the last member the group is deleted as well.
func (s *Service) Leave(ctx context.Context, groupID, callerID int64) (*LeaveResponse, error) {
	resp := &LeaveResponse{Success: true}
	err := s.repo.InTx(ctx, func(repo *Repository) error {
		if err := lockGroup(ctx, repo, groupID); err != nil {
			return err
		}
		if err := NewAuthority(repo).CanLeave(ctx, groupID, callerID); err != nil {
			return err
		}

		if _, err := repo.RemoveMember(ctx, groupID, callerID); err != nil {
			return err
		}

		remaining, err := repo.CountMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := repo.Delete(ctx, groupID); err != nil {
				return err
			}
			resp.GroupDeleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"group_id":      groupID,
		"user_id":       callerID,
		"group_deleted": resp.GroupDeleted,
	}).Info("member left group")

	event := events.New(events.MemberLeft, callerID, resp).ForGroup(groupID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("group_id", groupID).Warn("failed to publish event")
	}
	return resp, nil
}
