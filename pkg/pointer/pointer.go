// Package pointer converts between values, optional pointers and their SQL
// nullable forms.
package pointer

import (
	"database/sql"
)

func To[T any](v T) *T {
	return &v
}

// Copy returns a pointer to a copy of *p, or nil when p is nil.
func Copy[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return To(*p)
}

func ToNullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func FromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return To(v.String)
}
