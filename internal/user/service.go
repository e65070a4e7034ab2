package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/pkg/middleware"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
)

// IncomePropagator copies a user's declared income onto their group memberships
type IncomePropagator interface {
	UpdateIncomeForUser(ctx context.Context, userID int64, income decimal.Decimal) (int64, error)
}

// Service handles user business logic
type Service struct {
	repo       *Repository
	propagator IncomePropagator
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService creates a new user service with repository dependency injected
func NewService(repo *Repository, propagator IncomePropagator, log logrus.FieldLogger) *Service {
	return &Service{
		repo:       repo,
		propagator: propagator,
		log:        log.WithField("component", "user"),
		now:        time.Now,
	}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	req.Email = normalizeEmail(req.Email)
	req.MonthlyIncome = req.MonthlyIncome.Round(2)

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	return s.repo.Create(ctx, nil, req)
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByEmail retrieves a user by email, nil when nobody is registered with it
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// Resolve maps an identity provider subject to the internal user id. Unknown
// subjects are linked to an existing user with the same email, or provisioned.
func (s *Service) Resolve(ctx context.Context, identity middleware.Identity) (int64, error) {
	id, err := s.resolve(ctx, identity)
	if err == nil {
		return id, nil
	}

	// A concurrent first request may have provisioned the same subject.
	existing, lookupErr := s.repo.GetByExternalID(ctx, identity.Subject)
	if lookupErr == nil && existing != nil {
		return existing.ID, nil
	}
	return 0, err
}

func (s *Service) resolve(ctx context.Context, identity middleware.Identity) (int64, error) {
	existing, err := s.repo.GetByExternalID(ctx, identity.Subject)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	email := normalizeEmail(identity.Email)
	if email != "" {
		byEmail, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return 0, err
		}
		if byEmail != nil {
			if err := s.repo.LinkExternalID(ctx, byEmail.ID, identity.Subject, s.now()); err != nil {
				return 0, err
			}
			return byEmail.ID, nil
		}
	} else {
		email = identity.Subject + "@users.invalid"
	}

	name := identity.Name
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	subject := identity.Subject
	created, err := s.repo.Create(ctx, &subject, &CreateUserRequest{Email: email, Name: name})
	if err != nil {
		return 0, err
	}

	s.log.WithField("user_id", created.ID).Info("provisioned user from identity provider")
	return created.ID, nil
}

// UpdateProfile updates the caller's profile. A changed monthly income is
// copied to every group membership of the user; that copy is best-effort and
// never fails the update.
func (s *Service) UpdateProfile(ctx context.Context, id int64, req *UpdateProfileRequest) (*User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}

	updated, err := s.repo.Update(ctx, id, req, s.now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	if req.MonthlyIncome != nil && !existing.MonthlyIncome.Equal(updated.MonthlyIncome) && s.propagator != nil {
		n, err := s.propagator.UpdateIncomeForUser(ctx, id, updated.MonthlyIncome)
		if err != nil {
			s.log.WithError(err).WithField("user_id", id).Warn("failed to propagate monthly income to group memberships")
		} else {
			s.log.WithFields(logrus.Fields{"user_id": id, "memberships": n}).Debug("propagated monthly income")
		}
	}

	return updated, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
