package retry

import (
	"context"
)

// Action is a unit of work that may be attempted more than once.
type Action func() error

// Retrier runs actions under a fixed set of strategies.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier bound to strategies. With no strategies the
// action is retried in a tight loop until it succeeds.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry runs action until it succeeds or a strategy vetoes another attempt,
// and returns the number of attempts made along with the final error.
//
// Strategies are consulted in order after every failure, so the ones that
// sleep belong at the end.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		if !shouldRetry(strategies, attempts, err) {
			return attempts, err
		}
	}
}

// RetryWithContext is Retry, but gives up once ctx is done. The context
// error is returned in that case.
func RetryWithContext(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	attempts, err := Retry(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return action()
		},
		append([]Strategy{Context(ctx)}, strategies...)...,
	)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return attempts, ctxErr
	}
	return attempts, err
}

func shouldRetry(strategies []Strategy, attempts uint, err error) bool {
	for _, s := range strategies {
		if !s(attempts, err) {
			return false
		}
	}
	return true
}
