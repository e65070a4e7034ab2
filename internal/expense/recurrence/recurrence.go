// Package recurrence computes the next occurrence of a recurring expense.
//
// Months and years are advanced with time.AddDate, which normalises dates
// that do not exist in the target month: Jan 31 + 1 month is Mar 3 (Mar 2 in
// leap years) and Feb 29 + 1 year is Mar 1. That calendar overflow is the
// documented behaviour; callers must not clamp to the end of the month.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Interval is the period of a recurring expense
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

// ErrUnknownInterval is returned for intervals outside daily/weekly/monthly/yearly
var ErrUnknownInterval = errors.New("unknown recurrence interval")

// Valid reports whether i is a supported interval
func (i Interval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Next advances date by exactly one interval
func Next(date time.Time, interval Interval) (time.Time, error) {
	switch interval {
	case Daily:
		return date.AddDate(0, 0, 1), nil
	case Weekly:
		return date.AddDate(0, 0, 7), nil
	case Monthly:
		return date.AddDate(0, 1, 0), nil
	case Yearly:
		return date.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
}
