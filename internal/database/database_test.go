package database

import (
	"reflect"
	"testing"
	"time"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name      string
		dialect   Dialect
		query     string
		args      []any
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "postgres untouched",
			dialect:   DialectPostgres,
			query:     "SELECT * FROM users WHERE id = $1",
			args:      []any{1},
			wantQuery: "SELECT * FROM users WHERE id = $1",
			wantArgs:  []any{1},
		},
		{
			name:      "sqlite sequential",
			dialect:   DialectSQLite,
			query:     "UPDATE t SET a = $1 WHERE id = $2",
			args:      []any{"x", 7},
			wantQuery: "UPDATE t SET a = ? WHERE id = ?",
			wantArgs:  []any{"x", 7},
		},
		{
			name:      "sqlite reordered and repeated",
			dialect:   DialectSQLite,
			query:     "UPDATE t SET a = $3 WHERE id = $1 AND b = $2 OR c = $1",
			args:      []any{1, 2, 3},
			wantQuery: "UPDATE t SET a = ? WHERE id = ? AND b = ? OR c = ?",
			wantArgs:  []any{3, 1, 2, 1},
		},
		{
			name:      "sqlite two digit placeholder",
			dialect:   DialectSQLite,
			query:     "VALUES ($1, $10)",
			args:      []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			wantQuery: "VALUES (?, ?)",
			wantArgs:  []any{1, 10},
		},
		{
			name:      "sqlite without args",
			dialect:   DialectSQLite,
			query:     "SELECT '$1'",
			wantQuery: "SELECT '$1'",
		},
		{
			name:      "lone dollar kept",
			dialect:   DialectSQLite,
			query:     "SELECT '$' || name FROM t WHERE id = $1",
			args:      []any{5},
			wantQuery: "SELECT '$' || name FROM t WHERE id = ?",
			wantArgs:  []any{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotQuery, gotArgs := tt.dialect.Rebind(tt.query, tt.args)
			if gotQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", gotQuery, tt.wantQuery)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("args = %v, want %v", gotArgs, tt.wantArgs)
			}
		})
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"PostgreSQL", DialectPostgres, false},
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := ParseDialect(tt.driver)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDialect(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDialect(%q) = %q, want %q", tt.driver, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	d := time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC)
	if got := Date(d); got != "2024-02-29" {
		t.Errorf("Date() = %q, want 2024-02-29", got)
	}
}

func TestTimeScanner(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		src     any
		want    time.Time
		wantErr bool
	}{
		{"time value", want, want, false},
		{"sqlite default", "2024-01-15 10:30:00", want, false},
		{"sqlite written", "2024-01-15 10:30:00+00:00", want, false},
		{"bytes", []byte("2024-01-15T10:30:00Z"), want, false},
		{"date only", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "yesterday", time.Time{}, true},
		{"null", nil, time.Time{}, true},
		{"wrong type", int64(5), time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Time
			err := Time(&got).Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan(%v) error = %v, wantErr %v", tt.src, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("Scan(%v) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestNullTimeScanner(t *testing.T) {
	got := new(time.Time)
	if err := NullTime(&got).Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if got != nil {
		t.Errorf("Scan(nil) = %v, want nil", got)
	}

	if err := NullTime(&got).Scan("2024-02-29 08:00:00"); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got == nil || got.Day() != 29 {
		t.Errorf("Scan() = %v, want Feb 29", got)
	}
}
