package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/expense/recurrence"
	"github.com/fkhayef/sharedexpenses/internal/expense/split"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/metrics"
	"github.com/fkhayef/sharedexpenses/internal/payment"
)

// Common errors
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidDate        = errors.New("expense_date must be a date formatted as 2006-01-02")
	ErrRecurrenceRequired = errors.New("recurrence_interval must be one of daily, weekly, monthly or yearly for recurring expenses")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrSplitNotFound      = errors.New("split not found")
	ErrAlreadyPaid        = errors.New("split already paid")
)

const (
	msgPaymentRecorded = "Payment recorded successfully"
	msgPaymentDegraded = "Split marked as paid, but the payment record could not be saved"
)

// AuditRecorder writes the payment record that mirrors a paid split
type AuditRecorder interface {
	RecordSplitPayment(ctx context.Context, userID int64, amount decimal.Decimal, description string) (*payment.Payment, error)
}

// Notifier tells members about ledger activity
type Notifier interface {
	NotifyExpenseAdded(ctx context.Context, recipientID int64, payerName, description string, owed decimal.Decimal, currency string, expenseID int64) error
	NotifySplitPaid(ctx context.Context, recipientID int64, debtorName string, amount decimal.Decimal, currency string, splitID int64) error
}

// InvoiceChecker confirms that a user owns the invoice an expense links to
type InvoiceChecker interface {
	CheckOwner(ctx context.Context, invoiceID, userID int64) error
}

// Option configures optional collaborators of the service
type Option func(*Service)

// WithNotifier enables in-app notifications for new expenses and payments
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPublisher publishes ledger events
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithInvoiceChecker verifies invoice_id on new expenses
func WithInvoiceChecker(c InvoiceChecker) Option {
	return func(s *Service) { s.invoices = c }
}

// Service handles the group expense ledger
type Service struct {
	repo         *Repository
	groups       *group.Repository
	authority    *group.Authority
	splitFactory *split.Factory
	audit        AuditRecorder
	notifier     Notifier
	publisher    events.Publisher
	invoices     InvoiceChecker
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewService creates a new expense service
func NewService(repo *Repository, groups *group.Repository, audit AuditRecorder, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		groups:       groups,
		authority:    group.NewAuthority(groups),
		splitFactory: split.NewSplitStrategyFactory(),
		audit:        audit,
		publisher:    events.NopPublisher{},
		log:          log.WithField("component", "expense"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
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

// requireMember loads the group and checks that the caller belongs to it
func (s *Service) requireMember(ctx context.Context, groupID, callerID int64) (*group.Group, *group.Member, error) {
	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.authority.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, nil, err
	}
	return g, member, nil
}

// CreateExpense records an expense paid by the caller and splits it over the
// group's current members using the group's split method.
func (s *Service) CreateExpense(ctx context.Context, groupID, callerID int64, req *CreateExpenseRequest) (*Expense, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" || req.Amount.IsZero() || req.ExpenseDate == "" {
		return nil, ErrMissingFields
	}
	if !split.ValidAmount(req.Amount) {
		return nil, split.ErrInvalidAmount
	}
	date, err := parseDate(req.ExpenseDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if req.IsRecurring && (req.RecurrenceInterval == nil || !req.RecurrenceInterval.Valid()) {
		return nil, ErrRecurrenceRequired
	}

	g, _, err := s.requireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	if req.InvoiceID != nil && s.invoices != nil {
		if err := s.invoices.CheckOwner(ctx, *req.InvoiceID, callerID); err != nil {
			return nil, err
		}
	}

	e := &Expense{
		GroupID:     groupID,
		PaidBy:      callerID,
		Description: description,
		Amount:      req.Amount,
		Currency:    g.Currency,
		ExpenseDate: date,
		Category:    req.Category,
		InvoiceID:   req.InvoiceID,
		Notes:       req.Notes,
	}
	if req.IsRecurring {
		e.IsRecurring = true
		e.RecurrenceInterval = req.RecurrenceInterval
	}

	now := s.now()

	var created *Expense
	err = s.repo.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		created, _, err = s.record(ctx, s.repo.WithTx(tx), s.groups.WithTx(tx), e, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"group_id":   groupID,
		"expense_id": created.ID,
		"user_id":    callerID,
	}).Info("expense created")

	s.afterCreate(ctx, created, g.SplitMethod, events.ExpenseCreated)
	return created, nil
}

// record stores e with splits computed over the group's current roster. It
// must run inside a transaction: it takes the group lock first, so the payer's
// membership and the roster cannot change before the splits are written.
// Recurring expenses get their next occurrence from the expense date.
func (s *Service) record(ctx context.Context, repo *Repository, groups *group.Repository, e *Expense, now time.Time) (*Expense, *group.Group, error) {
	g, err := groups.LockGroup(ctx, e.GroupID)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, group.ErrGroupNotFound
	}

	if _, err := group.NewAuthority(groups).RequireMember(ctx, g.ID, e.PaidBy); err != nil {
		return nil, nil, err
	}

	members, err := groups.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}

	shares, err := s.splitFactory.ComputeSplits(e.Amount, e.PaidBy, group.Roster(members), g.SplitMethod, now)
	if err != nil {
		return nil, nil, err
	}

	if e.IsRecurring && e.RecurrenceInterval != nil {
		next, err := recurrence.Next(e.ExpenseDate, *e.RecurrenceInterval)
		if err != nil {
			return nil, nil, err
		}
		e.NextOccurrence = &next
	}

	created, err := repo.InsertExpenseWithSplits(ctx, e, shares)
	if err != nil {
		return nil, nil, err
	}
	return created, g, nil
}

// afterCreate runs the best-effort side effects of a new expense
func (s *Service) afterCreate(ctx context.Context, e *Expense, method split.Method, eventType events.Type) {
	s.metrics.ExpenseCreated(string(method))

	if s.notifier != nil {
		payerName := e.PayerName
		if payerName == "" {
			payerName = e.PayerEmail
		}
		for _, sp := range e.Splits {
			if sp.IsPaid || sp.UserID == e.PaidBy {
				continue
			}
			if err := s.notifier.NotifyExpenseAdded(ctx, sp.UserID, payerName, e.Description, sp.AmountOwed, e.Currency, e.ID); err != nil {
				s.sideEffectFailed(err, "notification", logrus.Fields{"expense_id": e.ID, "user_id": sp.UserID})
			}
		}
	}

	event := events.New(eventType, e.PaidBy, e.ToResponse()).ForGroup(e.GroupID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.sideEffectFailed(err, "event", logrus.Fields{"expense_id": e.ID})
	}
}

func (s *Service) sideEffectFailed(err error, kind string, fields logrus.Fields) {
	s.metrics.SideEffectFailed(kind)
	s.log.WithError(err).WithFields(fields).WithField("side_effect", kind).Warn("side effect failed")
}

// ListExpenses returns a page of a group's expenses, newest first
func (s *Service) ListExpenses(ctx context.Context, groupID, callerID int64, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	if _, _, err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	expenses, err := s.repo.ListByGroup(ctx, groupID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// GetExpense returns one expense of a group with its splits
func (s *Service) GetExpense(ctx context.Context, groupID, expenseID, callerID int64) (*Expense, error) {
	if _, _, err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(ctx, groupID, expenseID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

// MarkSplitPaid marks a split of an expense as paid. Any member of the group
// may do it. The split flips from unpaid to paid at most once; a concurrent
// or repeated call gets ErrAlreadyPaid.
//
// After the split is paid, a payment record is written for the debtor. If
// that fails the split stays paid and the result carries no payment.
func (s *Service) MarkSplitPaid(ctx context.Context, groupID, expenseID, splitID, callerID int64) (*PayResult, error) {
	if _, _, err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	e, err := s.repo.GetByID(ctx, groupID, expenseID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}

	updated, err := s.repo.MarkSplitPaid(ctx, expenseID, splitID, s.now())
	if err != nil {
		return nil, err
	}

	sp, err := s.repo.GetSplit(ctx, expenseID, splitID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, ErrSplitNotFound
	}
	if !updated {
		return nil, ErrAlreadyPaid
	}

	log := s.log.WithFields(logrus.Fields{
		"group_id":   groupID,
		"expense_id": expenseID,
		"split_id":   splitID,
		"user_id":    callerID,
	})
	log.Info("split marked as paid")
	s.metrics.SplitPaid()

	result := &PayResult{Split: sp, Message: msgPaymentRecorded}

	p, err := s.audit.RecordSplitPayment(ctx, sp.UserID, sp.AmountOwed, e.Description)
	if err != nil {
		s.sideEffectFailed(err, "audit_payment", logrus.Fields{"split_id": splitID})
		result.Message = msgPaymentDegraded
	} else {
		result.Payment = p
	}

	if s.notifier != nil && e.PaidBy != sp.UserID {
		if err := s.notifier.NotifySplitPaid(ctx, e.PaidBy, sp.DisplayName(), sp.AmountOwed, e.Currency, sp.ID); err != nil {
			s.sideEffectFailed(err, "notification", logrus.Fields{"split_id": splitID})
		}
	}

	event := events.New(events.SplitPaid, callerID, sp.ToResponse()).ForGroup(groupID)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.sideEffectFailed(err, "event", logrus.Fields{"split_id": splitID})
	}

	return result, nil
}
