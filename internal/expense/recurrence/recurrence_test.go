package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		interval Interval
		want     time.Time
	}{
		{"daily", date(2024, 3, 10), Daily, date(2024, 3, 11)},
		{"daily across year end", date(2023, 12, 31), Daily, date(2024, 1, 1)},
		{"weekly", date(2024, 3, 10), Weekly, date(2024, 3, 17)},
		{"weekly across month end", date(2024, 2, 26), Weekly, date(2024, 3, 4)},
		{"monthly", date(2024, 3, 15), Monthly, date(2024, 4, 15)},
		{"monthly december", date(2024, 12, 5), Monthly, date(2025, 1, 5)},
		{"monthly overflow from jan 31", date(2023, 1, 31), Monthly, date(2023, 3, 3)},
		{"monthly overflow from jan 31 leap year", date(2024, 1, 31), Monthly, date(2024, 3, 2)},
		{"monthly overflow from may 31", date(2024, 5, 31), Monthly, date(2024, 7, 1)},
		{"yearly", date(2024, 6, 1), Yearly, date(2025, 6, 1)},
		{"yearly from feb 29", date(2024, 2, 29), Yearly, date(2025, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.interval)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.from.Format("2006-01-02"), tt.interval,
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNext_UnknownInterval(t *testing.T) {
	for _, interval := range []Interval{"", "biweekly", "Monthly"} {
		t.Run(string(interval), func(t *testing.T) {
			if _, err := Next(date(2024, 1, 1), interval); !errors.Is(err, ErrUnknownInterval) {
				t.Fatalf("Next() error = %v, want ErrUnknownInterval", err)
			}
			if interval.Valid() {
				t.Errorf("%q should not be valid", interval)
			}
		})
	}
}
