package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) offer.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

func (s *store) Save(ctx context.Context, record *offer.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = pgutil.ExecuteRetryable(func() error {
		return obj.dbSave(ctx, s.db)
	})
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

func (s *store) GetByEscrow(ctx context.Context, escrow string) (*offer.Record, error) {
	obj, err := dbGetByEscrow(ctx, s.db, escrow)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

func (s *store) GetAllByInitializer(ctx context.Context, initializer string, state offer.State) ([]*offer.Record, error) {
	models, err := dbGetAllByInitializer(ctx, s.db, initializer, state)
	if err != nil {
		return nil, err
	}

	records := make([]*offer.Record, len(models))
	for i, model := range models {
		records[i] = fromModel(model)
	}
	return records, nil
}

func (s *store) GetAllByState(ctx context.Context, state offer.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*offer.Record, error) {
	models, err := dbGetAllByState(ctx, s.db, state, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*offer.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

func (s *store) CountByState(ctx context.Context, state offer.State) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}
