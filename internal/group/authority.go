package group

import (
	"context"
	"errors"
)

var (
	// ErrForbidden matches every authorization failure of this package
	ErrForbidden = errors.New("forbidden")

	ErrNotMember = forbiddenError("not a member of the group")
	ErrNotAdmin  = forbiddenError("group admin role required")
	ErrNotSelf   = forbiddenError("income can only be changed by the member")

	ErrHasUnpaidDebt = errors.New("member has unpaid splits in the group")
	ErrSoleAdmin     = errors.New("group must keep at least one admin")
)

type forbiddenError string

func (e forbiddenError) Error() string { return string(e) }

func (e forbiddenError) Is(target error) bool { return target == ErrForbidden }

// Authority decides who may act on a group and guards the group's
// structural rules.
type Authority struct {
	repo *Repository
}

// NewAuthority creates an authority backed by repo. Pass a transactional
// repository to evaluate the rules inside a transaction.
func NewAuthority(repo *Repository) *Authority {
	return &Authority{repo: repo}
}

// RequireMember returns the caller's membership or ErrNotMember
func (a *Authority) RequireMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	member, err := a.repo.GetMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}
	return member, nil
}

// RequireAdmin returns the caller's membership when they are an admin. Non
// members get ErrNotMember, plain members ErrNotAdmin.
func (a *Authority) RequireAdmin(ctx context.Context, groupID, userID int64) (*Member, error) {
	member, err := a.RequireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return member, nil
}

// CanLeave checks that the user may leave the group: they must hold no
// unpaid split in it, and an only admin may not leave while others remain.
func (a *Authority) CanLeave(ctx context.Context, groupID, userID int64) error {
	member, err := a.RequireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}

	unpaid, err := a.repo.HasUnpaidSplits(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if unpaid {
		return ErrHasUnpaidDebt
	}

	if !member.IsAdmin() {
		return nil
	}

	admins, err := a.repo.CountAdmins(ctx, groupID)
	if err != nil {
		return err
	}
	if admins > 1 {
		return nil
	}

	members, err := a.repo.CountMembers(ctx, groupID)
	if err != nil {
		return err
	}
	if members > 1 {
		return ErrSoleAdmin
	}
	return nil
}
