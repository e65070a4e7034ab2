package invoice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrInvoiceNotFound is returned for unknown invoices and for invoices owned
// by somebody else.
var ErrInvoiceNotFound = errors.New("invoice not found")

const defaultCurrency = "UYU"

// Service handles invoice business logic
type Service struct {
	repo *Repository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewService creates a new invoice service
func NewService(repo *Repository, log logrus.FieldLogger) *Service {
	return &Service{
		repo: repo,
		log:  log.WithField("component", "invoice"),
		now:  time.Now,
	}
}

// Create records a new pending invoice
func (s *Service) Create(ctx context.Context, userID int64, req *CreateInvoiceRequest) (*Invoice, error) {
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	req.VendorName = strings.TrimSpace(req.VendorName)
	return s.repo.Create(ctx, userID, req, currency)
}

// Get returns an invoice with the payments recorded against it
func (s *Service) Get(ctx context.Context, id, userID int64) (*Invoice, []*PaymentSummary, error) {
	i, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}

	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return i, payments, nil
}

func (s *Service) getOwned(ctx context.Context, id, userID int64) (*Invoice, error) {
	i, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, ErrInvoiceNotFound
	}
	return i, nil
}

// CheckOwner returns ErrInvoiceNotFound unless userID owns the invoice
func (s *Service) CheckOwner(ctx context.Context, id, userID int64) error {
	_, err := s.getOwned(ctx, id, userID)
	return err
}

// List returns a page of the user's invoices
func (s *Service) List(ctx context.Context, userID int64, status *Status, page, perPage int) ([]*Invoice, int, error) {
	offset := (page - 1) * perPage
	return s.repo.List(ctx, userID, status, perPage, offset)
}

// Update modifies an invoice. A new amount can move the status, so the
// invoice is reconciled afterwards.
func (s *Service) Update(ctx context.Context, id, userID int64, req *UpdateInvoiceRequest) (*Invoice, error) {
	if req.Currency != nil {
		upper := strings.ToUpper(*req.Currency)
		req.Currency = &upper
	}

	i, err := s.repo.Update(ctx, id, userID, req, s.now())
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, ErrInvoiceNotFound
	}

	if req.Amount != nil {
		status, err := s.ReconcileStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		i.Status = status
	}
	return i, nil
}

// Delete removes an invoice; its payments stay with a null invoice
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrInvoiceNotFound
	}
	return nil
}

// ReconcileStatus recomputes an invoice's status from its completed payments
// and stores it. Running it twice yields the same status.
func (s *Service) ReconcileStatus(ctx context.Context, id int64) (Status, error) {
	amount, found, err := s.repo.GetAmount(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrInvoiceNotFound
	}

	payments, err := s.repo.CompletedPayments(ctx, id)
	if err != nil {
		return "", err
	}

	total := decimal.Sum(decimal.Zero, payments...)
	status := DeriveStatus(amount, total)

	if err := s.repo.SetStatus(ctx, id, status, s.now()); err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{"invoice_id": id, "status": status, "paid": total.StringFixed(2)}).Debug("invoice reconciled")
	return status, nil
}
