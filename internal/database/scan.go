package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLite only reports a declared type for plain column references, so
// timestamps read through RETURNING or expressions arrive as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the textual timestamp formats either dialect produces
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", s)
}

type timeScanner struct {
	dst      *time.Time
	nullable **time.Time
}

// Time scans a NOT NULL timestamp or date column into dst
func Time(dst *time.Time) sql.Scanner {
	return &timeScanner{dst: dst}
}

// NullTime scans a nullable timestamp or date column into dst, leaving it
// nil for NULL.
func NullTime(dst **time.Time) sql.Scanner {
	return &timeScanner{nullable: dst}
}

func (s *timeScanner) Scan(src any) error {
	var t time.Time
	switch v := src.(type) {
	case nil:
		if s.nullable != nil {
			*s.nullable = nil
			return nil
		}
		return fmt.Errorf("cannot scan NULL into time.Time")
	case time.Time:
		t = v
	case string:
		parsed, err := ParseTime(v)
		if err != nil {
			return err
		}
		t = parsed
	case []byte:
		parsed, err := ParseTime(string(v))
		if err != nil {
			return err
		}
		t = parsed
	default:
		return fmt.Errorf("cannot scan %T into time.Time", src)
	}

	if s.nullable != nil {
		*s.nullable = &t
		return nil
	}
	*s.dst = t
	return nil
}
