package postgresql

import (
	"strings"
	"testing"
	"time"
)

func TestDialect_Placeholder(t *testing.T) {
	d := NewDialect()
	for idx, want := range map[int]string{1: "$1", 10: "$10", 100: "$100"} {
		if got := d.Placeholder(idx); got != want {
			t.Errorf("Placeholder(%d) = %v, want %v", idx, got, want)
		}
	}
}

func TestDialect_Conversions(t *testing.T) {
	d := NewDialect()
	if !d.Returning() {
		t.Error("postgres should use RETURNING")
	}
	if d.BoolToStorage(true) != true {
		t.Error("bools should be stored natively")
	}
	if !d.BoolFromStorage(true) || d.BoolFromStorage(int64(1)) {
		t.Error("BoolFromStorage mismatch")
	}
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	if got := d.TimeFromStorage(ts); got != "2024-03-01T09:00:00Z" {
		t.Errorf("TimeFromStorage(time) = %q", got)
	}
	if got := d.TimeFromStorage(&ts); got != "2024-03-01T09:00:00Z" {
		t.Errorf("TimeFromStorage(*time) = %q", got)
	}
	var nilTime *time.Time
	if got := d.TimeFromStorage(nilTime); got != "" {
		t.Errorf("TimeFromStorage(nil) = %q", got)
	}
}

func TestDialect_EnsureStatements(t *testing.T) {
	stmts := NewDialect().EnsureStatements("adorun_runs", "adorun_run_items")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "BIGSERIAL") || !strings.Contains(stmts[0], "TIMESTAMPTZ") {
		t.Errorf("unexpected runs statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], "REFERENCES adorun_runs(id)") {
		t.Errorf("unexpected items statement: %s", stmts[1])
	}
}

func TestConfig_ConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit dsn wins", Config{DSN: " postgres://a@b/c ", Host: "ignored"}, "postgres://a@b/c"},
		{"components with defaults", Config{Host: "db", User: "u", Password: "p", DBName: "journal"}, "postgres://u:p@db:5432/journal?sslmode=disable"},
		{"custom port and ssl", Config{Host: "db", Port: 6543, User: "u", Password: "p w", DBName: "j", SSLMode: "require"}, "postgres://u:p%20w@db:6543/j?sslmode=require"},
		{"nothing set", Config{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnString(); got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}
