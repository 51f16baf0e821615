package query

import (
	"fmt"
)

const defaultPagingLimit = 1000

// PaginateQuery appends keyset paging on the id column to a query whose
// filter is already wrapped in parentheses, for example
// "SELECT ... WHERE (a = $1 OR b = $2)". The cursor and limit are bound as
// the next positional parameters.
func PaginateQuery(query string, args []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	op, order := ">", "ASC"
	if direction == Descending {
		op, order = "<", "DESC"
	}

	if len(cursor) > 0 {
		args = append(args, cursor.ToUint64())
		query += fmt.Sprintf(" AND id %s $%d", op, len(args))
	}

	query += " ORDER BY id " + order

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}

// DefaultPaginationHandler applies opts on top of ascending order with the
// default limit. Limits above the default are rejected.
func DefaultPaginationHandler(opts ...Option) (*QueryOptions, error) {
	req := &QueryOptions{
		Supported: CanLimitResults | CanSortBy | CanQueryByCursor,
		SortBy:    Ascending,
		Limit:     defaultPagingLimit,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, err
	}
	if req.Limit > defaultPagingLimit {
		return nil, ErrQueryNotSupported
	}
	return req, nil
}
