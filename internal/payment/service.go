package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/invoice"
)

// Common errors
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidDate     = errors.New("payment_date must be a date formatted as 2006-01-02")
)

// InvoiceLedger is the invoice behaviour payments depend on
type InvoiceLedger interface {
	CheckOwner(ctx context.Context, invoiceID, userID int64) error
	ReconcileStatus(ctx context.Context, invoiceID int64) (invoice.Status, error)
}

// Service handles payment business logic
type Service struct {
	repo     *Repository
	invoices InvoiceLedger
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService creates a new payment service
func NewService(repo *Repository, invoices InvoiceLedger, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		invoices: invoices,
		log:      log.WithField("component", "payment"),
		now:      time.Now,
	}
}

// Create records a payment. A completed payment against an invoice moves
// the invoice status.
func (s *Service) Create(ctx context.Context, userID int64, req *CreatePaymentRequest) (*Payment, error) {
	date, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if req.InvoiceID != nil {
		if err := s.invoices.CheckOwner(ctx, *req.InvoiceID, userID); err != nil {
			return nil, err
		}
	}

	p := &Payment{
		UserID:      userID,
		InvoiceID:   req.InvoiceID,
		PaymentDate: date,
		PaymentType: req.PaymentType,
		AmountPaid:  req.AmountPaid,
		Status:      req.Status,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	if p.Status == "" {
		p.Status = StatusCompleted
	}
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	if created.Completed() {
		s.reconcile(ctx, created.InvoiceID)
	}
	return created, nil
}

// RecordSplitPayment writes the audit payment for a paid group expense
// split. It is not linked to any invoice.
func (s *Service) RecordSplitPayment(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*Payment, error) {
	notes := fmt.Sprintf("Shared expense payment: %s", description)
	return s.repo.Create(ctx, &Payment{
		UserID:      userID,
		PaymentDate: s.now(),
		PaymentType: TypeGroupExpense,
		AmountPaid:  amount,
		Status:      StatusCompleted,
		Reference:   uuid.NewString(),
		Notes:       &notes,
	})
}

// Get returns a payment owned by userID
func (s *Service) Get(ctx context.Context, id, userID int64) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// List returns a page of the user's payments
func (s *Service) List(ctx context.Context, userID int64, page, perPage int) ([]*Payment, int, error) {
	offset := (page - 1) * perPage
	return s.repo.ListByUserID(ctx, userID, perPage, offset)
}

// Update changes the amount, status or notes of a payment and reconciles
// the invoice it is linked to.
func (s *Service) Update(ctx context.Context, id, userID int64, req *UpdatePaymentRequest) (*Payment, error) {
	p, err := s.repo.Update(ctx, id, userID, req, s.now())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}

	s.reconcile(ctx, p.InvoiceID)
	return p, nil
}

// Delete removes a payment and reconciles the invoice it was linked to
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	p, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPaymentNotFound
	}

	s.reconcile(ctx, p.InvoiceID)
	return nil
}

// reconcile is best-effort: the payment itself is already stored
func (s *Service) reconcile(ctx context.Context, invoiceID *int64) {
	if invoiceID == nil {
		return
	}
	if _, err := s.invoices.ReconcileStatus(ctx, *invoiceID); err != nil {
		s.log.WithError(err).WithField("invoice_id", *invoiceID).Warn("failed to reconcile invoice status")
	}
}
