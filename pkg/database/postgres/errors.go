package pg

import (
	"database/sql"

	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

// IsNoRows reports whether err is the empty result error from database/sql.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// CheckNoRows translates an empty result into notFound, passing any other
// error through.
func CheckNoRows(err, notFound error) error {
	if IsNoRows(err) {
		return notFound
	}
	return err
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgerrcode.UniqueViolation)
}

// CheckUniqueViolation translates a unique constraint violation into
// conflict, passing any other error through.
func CheckUniqueViolation(err, conflict error) error {
	if IsUniqueViolation(err) {
		return conflict
	}
	return err
}
