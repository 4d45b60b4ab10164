package retry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func fastPolicy(attempts int) *Policy {
	p := DefaultPolicy()
	p.Attempts = attempts
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func TestPolicy_transient(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"syntax", errors.New("near \"SELEC\": syntax error"), false},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", errors.Join(errors.New("x"), context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.transient(tt.err); got != tt.want {
				t.Fatalf("transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPolicy_backoff(t *testing.T) {
	p := &Policy{BaseDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond, Factor: 2}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), "insert run", func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("no such table: runs")
	err := Do(context.Background(), fastPolicy(5), "insert run", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), "insert run", func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fastPolicy(3), "insert run", func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("fn should not run on a cancelled context, ran %d times", calls)
	}
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 7, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

func TestExec_ReturnsResult(t *testing.T) {
	calls := 0
	res, err := Exec(context.Background(), fastPolicy(3), "insert run", func() (sql.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("deadlock detected")
		}
		return fakeResult{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, _ := res.LastInsertId()
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
}
