// Package query holds the paging options shared by the data stores.
package query

import (
	"errors"
)

var ErrQueryNotSupported = errors.New("query option not supported")

// SupportedOptions is a bitmask of the options a query handler accepts.
type SupportedOptions byte

const (
	CanLimitResults SupportedOptions = 1 << iota
	CanSortBy
	CanQueryByCursor
)

type QueryOptions struct {
	Supported SupportedOptions

	SortBy Ordering
	Limit  uint64
	Cursor Cursor
}

type Option func(*QueryOptions) error

func (qo *QueryOptions) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(qo); err != nil {
			return err
		}
	}
	return nil
}

func (qo *QueryOptions) supports(option SupportedOptions) error {
	if qo.Supported&option != option {
		return ErrQueryNotSupported
	}
	return nil
}

func WithDirection(val Ordering) Option {
	return func(qo *QueryOptions) error {
		if err := qo.supports(CanSortBy); err != nil {
			return err
		}
		qo.SortBy = val
		return nil
	}
}

func WithLimit(val uint64) Option {
	return func(qo *QueryOptions) error {
		if err := qo.supports(CanLimitResults); err != nil {
			return err
		}
		qo.Limit = val
		return nil
	}
}

func WithCursor(val Cursor) Option {
	return func(qo *QueryOptions) error {
		if err := qo.supports(CanQueryByCursor); err != nil {
			return err
		}
		qo.Cursor = val
		return nil
	}
}
