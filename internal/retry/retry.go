// Package retry wraps outbound calls in a bounded, linearly growing backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is the number of times an operation is invoked before giving up.
	DefaultMaxAttempts = 3
	// DefaultStep is the delay unit; the wait after attempt n is n*DefaultStep.
	DefaultStep = time.Second
)

// Policy describes how a single call site retries.
type Policy struct {
	Name        string
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Permanent reports errors that must not be retried. Nil retries everything.
	Permanent func(err error) bool
	// Timer drives the waits; nil uses a real timer.
	Timer  backoff.Timer
	Logger *zap.Logger
}

// Default returns the 3-attempt, 1s-linear policy.
func Default(name string, logger *zap.Logger) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     Linear(DefaultStep),
		Logger:      logger,
	}
}

// Linear returns a backoff where the wait after attempt n is n*step.
func Linear(step time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// WithPermanent returns a copy of p that stops retrying on errors matching fn.
func (p Policy) WithPermanent(fn func(err error) bool) Policy {
	p.Permanent = fn
	return p
}

// Named returns a copy of p labelled for logging.
func (p Policy) Named(name string) Policy {
	p.Name = name
	return p
}

// schedule adapts a Policy to backoff.BackOff, counting failed attempts.
type schedule struct {
	policy  Policy
	attempt int
}

func (s *schedule) Reset() { s.attempt = 0 }

func (s *schedule) NextBackOff() time.Duration {
	s.attempt++
	if s.attempt >= s.policy.MaxAttempts {
		return backoff.Stop
	}
	return s.policy.Backoff(s.attempt)
}

// Do invokes op until it succeeds, a permanent error is returned or
// MaxAttempts is reached. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = Linear(DefaultStep)
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sched := &schedule{policy: p}
	operation := func() (T, error) {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		logger.Warn("call failed",
			zap.String("call", p.Name),
			zap.Int("attempt", sched.attempt+1),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(err),
		)
		if p.Permanent != nil && p.Permanent(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("retrying", zap.String("call", p.Name), zap.Duration("wait", wait))
	}

	return backoff.RetryNotifyWithTimerAndData(operation, backoff.WithContext(sched, ctx), notify, p.Timer)
}
