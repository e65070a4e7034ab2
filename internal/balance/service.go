// Package balance derives who owes whom inside a group from its split ledger.
package balance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/group"
)

// Service computes group balances
type Service struct {
	repo      *Repository
	groups    *group.Repository
	authority *group.Authority
	log       logrus.FieldLogger
}

// NewService creates a new balance service
func NewService(repo *Repository, groups *group.Repository, log logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		groups:    groups,
		authority: group.NewAuthority(groups),
		log:       log.WithField("component", "balance"),
	}
}

type pair struct{ low, high int64 }

// GroupBalances returns every member's totals, the netted debts between
// members and the caller's own position. The caller must be a member.
func (s *Service) GroupBalances(ctx context.Context, groupID, callerID int64) (*GroupBalancesResponse, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}
	if _, err := s.authority.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ledger(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var order []int64
	byUser := make(map[int64]*MemberBalance)
	touch := func(id int64, email, name string) *MemberBalance {
		if b, ok := byUser[id]; ok {
			return b
		}
		b := &MemberBalance{UserID: id, Email: email, Name: name}
		byUser[id] = b
		order = append(order, id)
		return b
	}
	for _, m := range members {
		touch(m.UserID, m.Email, m.Name)
	}

	// pairwise holds what low owes high minus what high owes low
	pairwise := make(map[pair]decimal.Decimal)
	seenExpense := make(map[int64]bool)

	for _, l := range lines {
		payer := touch(l.PayerID, l.PayerEmail, l.PayerName)
		debtor := touch(l.DebtorID, l.DebtorEmail, l.DebtorName)

		if !seenExpense[l.ExpenseID] {
			seenExpense[l.ExpenseID] = true
			payer.TotalPaid = payer.TotalPaid.Add(l.ExpenseAmount)
		}
		debtor.TotalShare = debtor.TotalShare.Add(l.AmountOwed)

		if l.IsPaid || l.DebtorID == l.PayerID {
			continue
		}
		payer.OwedToThem = payer.OwedToThem.Add(l.AmountOwed)
		debtor.TheyOwe = debtor.TheyOwe.Add(l.AmountOwed)

		if l.DebtorID < l.PayerID {
			k := pair{l.DebtorID, l.PayerID}
			pairwise[k] = pairwise[k].Add(l.AmountOwed)
		} else {
			k := pair{l.PayerID, l.DebtorID}
			pairwise[k] = pairwise[k].Sub(l.AmountOwed)
		}
	}

	resp := &GroupBalancesResponse{
		GroupID:  groupID,
		Currency: g.Currency,
		Members:  make([]*MemberBalance, 0, len(order)),
		Debts:    make([]*Debt, 0),
		You:      make([]*NetBalance, 0),
	}
	for _, id := range order {
		b := byUser[id]
		b.Net = b.OwedToThem.Sub(b.TheyOwe)
		resp.Members = append(resp.Members, b)
	}

	for k, amount := range pairwise {
		if amount.IsZero() {
			continue
		}
		from, to := k.low, k.high
		if amount.IsNegative() {
			from, to = to, from
			amount = amount.Neg()
		}
		resp.Debts = append(resp.Debts, &Debt{
			FromUserID: from,
			FromName:   displayName(byUser[from]),
			ToUserID:   to,
			ToName:     displayName(byUser[to]),
			Amount:     amount,
		})
	}
	sort.Slice(resp.Debts, func(i, j int) bool {
		a, b := resp.Debts[i], resp.Debts[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		if a.FromUserID != b.FromUserID {
			return a.FromUserID < b.FromUserID
		}
		return a.ToUserID < b.ToUserID
	})

	for _, d := range resp.Debts {
		switch callerID {
		case d.FromUserID:
			resp.You = append(resp.You, &NetBalance{
				UserID:  d.ToUserID,
				Name:    d.ToName,
				Amount:  d.Amount,
				Message: fmt.Sprintf("You owe %s %s %s", d.ToName, d.Amount.StringFixed(2), g.Currency),
			})
		case d.ToUserID:
			resp.You = append(resp.You, &NetBalance{
				UserID:  d.FromUserID,
				Name:    d.FromName,
				Amount:  d.Amount.Neg(),
				Message: fmt.Sprintf("%s owes you %s %s", d.FromName, d.Amount.StringFixed(2), g.Currency),
			})
		}
	}

	return resp, nil
}

func displayName(b *MemberBalance) string {
	if b.Name != "" {
		return b.Name
	}
	return b.Email
}
