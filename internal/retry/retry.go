package retry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/adorun/internal/common"
)

// Policy controls how journal writes are retried. Remote API calls never go
// through this package.
type Policy struct {
	Attempts  int           // total attempts, including the first
	BaseDelay time.Duration // delay before the second attempt
	MaxDelay  time.Duration
	Factor    float64
	Transient []string // lower-case substrings of errors worth retrying
}

// DefaultPolicy suits a local sqlite file or a nearby postgres.
func DefaultPolicy() *Policy {
	return &Policy{
		Attempts:  4,
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		Factor:    2.0,
		Transient: []string{
			"database is locked",
			"database table is locked",
			"sqlite_busy",
			"connection refused",
			"connection reset",
			"broken pipe",
			"deadlock",
			"too many connections",
		},
	}
}

func (p *Policy) transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range p.Transient {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// backoff returns the wait before attempt n (1-based retry number).
func (p *Policy) backoff(n int) time.Duration {
	if n <= 1 {
		return p.BaseDelay
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(n-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are exhausted. A nil policy means DefaultPolicy.
func Do(ctx context.Context, p *Policy, what string, fn func() error) error {
	if p == nil {
		p = DefaultPolicy()
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := common.GetLogger().WithComponent("journal-retry")

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			if i > 1 {
				logger.Info("journal write succeeded after retry", "what", what, "attempt", i)
			}
			return nil
		}
		if !p.transient(lastErr) {
			return lastErr
		}
		if i == attempts {
			break
		}
		delay := p.backoff(i)
		logger.Warn("journal write failed, retrying", "what", what, "error", lastErr, "attempt", i, "retry_delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled during retry: %w", what, ctx.Err())
		case <-time.After(delay):
		}
	}
	logger.Error("journal write failed", "what", what, "error", lastErr, "attempts", attempts)
	return fmt.Errorf("%s failed after %d attempts: %w", what, attempts, lastErr)
}

// Exec wraps a statement execution with Do.
func Exec(ctx context.Context, p *Policy, what string, fn func() (sql.Result, error)) (sql.Result, error) {
	var res sql.Result
	err := Do(ctx, p, what, func() error {
		var err error
		res, err = fn()
		return err
	})
	return res, err
}
