package pg

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const maxSerializationRetries = 10

// ExecuteRetryable runs fn again whenever it fails with a serialization
// failure, up to a bounded number of times.
func ExecuteRetryable(fn func() error) error {
	var err error
	for i := 0; i < maxSerializationRetries; i++ {
		err = fn()
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

// ExecuteInTx runs fn inside a new transaction at the requested isolation,
// committing when fn succeeds and rolling back otherwise.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		// Rollback must always run so the connection is released.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "failed to rollback after %v", err)
		}
		return err
	}
	return tx.Commit()
}

func isSerializationFailure(err error) bool {
	return hasCode(err, pgerrcode.SerializationFailure)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
