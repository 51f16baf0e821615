package offer

import (
	"context"
	"errors"

	"github.com/code-payments/code-escrow/pkg/database/query"
)

var (
	ErrNotFound          = errors.New("offer not found")
	ErrStaleVersion      = errors.New("offer version is stale")
	ErrInvalidTransition = errors.New("invalid offer state transition")
)

type Store interface {
	// Save creates or updates an offer. Only the state, acceptor and exchange
	// signature of an existing offer can be updated, and an exchanged offer
	// is final.
	Save(ctx context.Context, record *Record) error

	// GetByEscrow gets an offer by its escrow account
	GetByEscrow(ctx context.Context, escrow string) (*Record, error)

	// GetAllByInitializer gets all offers for an initializer in a state
	GetAllByInitializer(ctx context.Context, initializer string, state State) ([]*Record, error)

	// GetAllByState gets all offers by state
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState returns the count of offers in the requested state
	CountByState(ctx context.Context, state State) (uint64, error)
}
