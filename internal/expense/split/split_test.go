package split

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var now = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func members(incomes ...string) []Member {
	out := make([]Member, len(incomes))
	for i, inc := range incomes {
		out[i] = Member{UserID: int64(i + 1), MonthlyIncome: d(inc)}
	}
	return out
}

func TestComputeSplits(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		payer   int64
		members []Member
		method  Method
		want    []string
	}{
		{
			name:    "equal three ways",
			amount:  "300",
			payer:   1,
			members: members("10", "20", "30"),
			method:  MethodEqual,
			want:    []string{"100", "100", "100"},
		},
		{
			name:    "proportional by income",
			amount:  "1000",
			payer:   1,
			members: members("3000", "1000"),
			method:  MethodProportional,
			want:    []string{"750", "250"},
		},
		{
			name:    "zero income falls back to equal",
			amount:  "200",
			payer:   2,
			members: members("0", "0"),
			method:  MethodProportional,
			want:    []string{"100", "100"},
		},
		{
			name:    "unknown method falls back to equal",
			amount:  "90",
			payer:   3,
			members: members("1", "2", "3"),
			method:  Method("weighted"),
			want:    []string{"30", "30", "30"},
		},
		{
			name:    "remainder goes to payer",
			amount:  "100",
			payer:   1,
			members: members("0", "0", "0"),
			method:  MethodEqual,
			want:    []string{"33.34", "33.33", "33.33"},
		},
		{
			name:    "negative remainder taken from payer",
			amount:  "2",
			payer:   2,
			members: members("1", "1", "1"),
			method:  MethodProportional,
			want:    []string{"0.67", "0.66", "0.67"},
		},
		{
			name:    "payer with zero income absorbs positive remainder",
			amount:  "1",
			payer:   4,
			members: members("1", "1", "1", "0"),
			method:  MethodProportional,
			want:    []string{"0.33", "0.33", "0.33", "0.01"},
		},
		{
			name:    "payer with zero income never goes negative",
			amount:  "2",
			payer:   4,
			members: members("1", "1", "1", "0"),
			method:  MethodProportional,
			want:    []string{"0.66", "0.67", "0.67", "0"},
		},
		{
			name:    "tiny amount over many members",
			amount:  "0.05",
			payer:   1,
			members: members("0", "0", "0", "0", "0", "0", "0", "0", "0", "0"),
			method:  MethodEqual,
			want:    []string{"0", "0", "0", "0", "0", "0.01", "0.01", "0.01", "0.01", "0.01"},
		},
		{
			name:    "single member owes everything",
			amount:  "42.42",
			payer:   1,
			members: members("500"),
			method:  MethodProportional,
			want:    []string{"42.42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := ComputeSplits(d(tt.amount), tt.payer, tt.members, tt.method, now)
			if err != nil {
				t.Fatalf("ComputeSplits() error = %v", err)
			}
			if len(shares) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(shares), len(tt.want))
			}

			sum := decimal.Zero
			paid := 0
			for i, s := range shares {
				if s.UserID != tt.members[i].UserID {
					t.Errorf("share %d user = %d, want roster order %d", i, s.UserID, tt.members[i].UserID)
				}
				if !s.AmountOwed.Equal(d(tt.want[i])) {
					t.Errorf("share %d owed = %s, want %s", i, s.AmountOwed, tt.want[i])
				}
				if s.AmountOwed.IsNegative() {
					t.Errorf("share %d is negative: %s", i, s.AmountOwed)
				}
				if s.IsPaid {
					paid++
					if s.UserID != tt.payer {
						t.Errorf("share for %d is paid but payer is %d", s.UserID, tt.payer)
					}
					if s.PaidAt == nil || !s.PaidAt.Equal(now) {
						t.Errorf("payer share paid_at = %v, want %v", s.PaidAt, now)
					}
				} else if s.PaidAt != nil {
					t.Errorf("unpaid share %d has paid_at", s.UserID)
				}
				sum = sum.Add(s.AmountOwed)
			}

			if paid != 1 {
				t.Errorf("%d shares paid, want exactly 1", paid)
			}
			if !sum.Equal(d(tt.amount)) {
				t.Errorf("sum of shares = %s, want %s", sum, tt.amount)
			}
		})
	}
}

func TestComputeSplits_SumInvariant(t *testing.T) {
	amounts := []string{"0.01", "0.99", "1", "10", "99.99", "100", "333.33", "1000.01", "12345.67"}
	rosters := [][]Member{
		members("0"),
		members("0", "0"),
		members("1000", "2000", "3000"),
		members("1", "1", "1", "1", "1", "1", "1"),
		members("0", "1500.50", "0", "999.99"),
	}

	for _, amount := range amounts {
		for _, roster := range rosters {
			for _, method := range []Method{MethodEqual, MethodProportional} {
				for _, payer := range roster {
					shares, err := ComputeSplits(d(amount), payer.UserID, roster, method, now)
					if err != nil {
						t.Fatalf("ComputeSplits(%s, %d members, %s) error = %v", amount, len(roster), method, err)
					}
					sum := decimal.Zero
					for _, s := range shares {
						if s.AmountOwed.IsNegative() {
							t.Fatalf("negative share %s for amount %s", s.AmountOwed, amount)
						}
						sum = sum.Add(s.AmountOwed)
					}
					if !sum.Equal(d(amount)) {
						t.Fatalf("amount %s method %s payer %d: sum = %s", amount, method, payer.UserID, sum)
					}
				}
			}
		}
	}
}

func TestComputeSplits_Errors(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		payer   int64
		members []Member
		wantErr error
	}{
		{"no members", "10", 1, nil, ErrNoMembers},
		{"payer outside roster", "10", 9, members("1", "2"), ErrPayerNotMember},
		{"zero amount", "0", 1, members("1"), ErrInvalidAmount},
		{"negative amount", "-5", 1, members("1"), ErrInvalidAmount},
		{"sub-cent amount", "10.005", 1, members("1"), ErrInvalidAmount},
		{"amount above column range", "10000000000", 1, members("1"), ErrInvalidAmount},
		{"negative income", "10", 1, members("100", "-1"), ErrNegativeIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeSplits(d(tt.amount), tt.payer, tt.members, MethodProportional, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ComputeSplits() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_Create(t *testing.T) {
	f := NewSplitStrategyFactory()

	tests := []struct {
		method Method
		want   Method
	}{
		{MethodEqual, MethodEqual},
		{MethodProportional, MethodProportional},
		{Method(""), MethodEqual},
		{Method("EXACT"), MethodEqual},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			if got := f.Create(tt.method).Type(); got != tt.want {
				t.Errorf("Create(%q).Type() = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}
