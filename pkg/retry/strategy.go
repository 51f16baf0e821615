package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

// Strategy decides whether a failed action gets another attempt. attempts
// counts the attempts made so far, starting at 1. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit caps the total number of attempts at maxAttempts.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors that match one of retriable.
func RetriableErrors(retriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return matchesAny(err, retriable)
	}
}

// NonRetriableErrors retries everything except errors that match one of
// nonRetriable.
func NonRetriableErrors(nonRetriable ...error) Strategy {
	return func(_ uint, err error) bool {
		return !matchesAny(err, nonRetriable)
	}
}

// Context stops retrying once ctx is done.
func Context(ctx context.Context) Strategy {
	return func(_ uint, _ error) bool {
		return ctx.Err() == nil
	}
}

// Backoff sleeps for the delay given by strategy, capped at maxBackoff,
// before allowing the next attempt.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		sleeperImpl.Sleep(capped(strategy(attempts), maxBackoff))
		return true
	}
}

// BackoffWithJitter is Backoff with the capped delay randomly moved by up to
// jitter, a fraction of the delay. A 100ms delay with a jitter of 0.1 sleeps
// somewhere between 90ms and 110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := capped(strategy(attempts), maxBackoff)
		factor := 1 + jitter*(2*rand.Float64()-1)
		sleeperImpl.Sleep(time.Duration(float64(delay) * factor))
		return true
	}
}

func capped(delay, max time.Duration) time.Duration {
	if delay > max {
		return max
	}
	return delay
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (r *realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = &realSleeper{}
