package expense

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/group"
)

// maxRecurringRounds bounds how many times ProcessDue re-reads the due list.
// Each round materialises one more step of every overdue chain.
const maxRecurringRounds = 1000

var errOccurrenceClaimed = errors.New("occurrence already materialised")

// RecurringProcessor materialises the next instance of due recurring
// expenses. Each source expense is claimed exactly once, so overlapping runs
// never duplicate an occurrence.
type RecurringProcessor struct {
	svc *Service
	log logrus.FieldLogger
}

// NewRecurringProcessor creates a processor that records occurrences through svc
func NewRecurringProcessor(svc *Service) *RecurringProcessor {
	return &RecurringProcessor{
		svc: svc,
		log: svc.log.WithField("worker", "recurring"),
	}
}

// ProcessDue creates every occurrence due on or before today and returns how
// many expenses it created. Sources that fail are logged and left for the
// next run.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today time.Time) (int, error) {
	skipped := make(map[int64]bool)
	created := 0

	for round := 0; round < maxRecurringRounds; round++ {
		due, err := p.svc.repo.ListDueRecurring(ctx, today)
		if err != nil {
			return created, err
		}

		progressed := false
		for _, src := range due {
			if skipped[src.ID] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return created, err
			}

			log := p.log.WithFields(logrus.Fields{
				"source_expense_id": src.ID,
				"group_id":          src.GroupID,
				"occurrence_date":   database.Date(*src.NextOccurrence),
			})

			e, g, err := p.materialise(ctx, src)
			switch {
			case errors.Is(err, errOccurrenceClaimed):
				skipped[src.ID] = true
				log.Debug("occurrence already claimed")
				continue
			case err != nil:
				skipped[src.ID] = true
				p.svc.metrics.RecurringFailed()
				log.WithError(err).Warn("failed to create recurring expense")
				continue
			}

			created++
			progressed = true
			p.svc.metrics.RecurringCreated()
			log.WithField("expense_id", e.ID).Info("recurring expense created")
			p.svc.afterCreate(ctx, e, g.SplitMethod, events.ExpenseRecurred)
		}

		if !progressed {
			break
		}
	}

	return created, nil
}

// materialise records the occurrence of src dated at its next occurrence and
// claims src, both in one transaction. Splits follow the current roster.
func (p *RecurringProcessor) materialise(ctx context.Context, src *Expense) (*Expense, *group.Group, error) {
	var (
		created *Expense
		g       *group.Group
	)

	err := p.svc.repo.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := p.svc.repo.WithTx(tx)
		groups := p.svc.groups.WithTx(tx)

		next := &Expense{
			GroupID:            src.GroupID,
			PaidBy:             src.PaidBy,
			Description:        src.Description,
			Amount:             src.Amount,
			Currency:           src.Currency,
			ExpenseDate:        *src.NextOccurrence,
			Category:           src.Category,
			IsRecurring:        true,
			RecurrenceInterval: src.RecurrenceInterval,
			Notes:              src.Notes,
		}

		var err error
		created, g, err = p.svc.record(ctx, repo, groups, next, p.svc.now())
		if err != nil {
			return err
		}

		claimed, err := repo.ClaimOccurrence(ctx, src.ID, created.ID, *src.NextOccurrence)
		if err != nil {
			return err
		}
		if !claimed {
			return errOccurrenceClaimed
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, g, nil
}
