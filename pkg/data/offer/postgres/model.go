package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	pgutil "github.com/code-payments/code-escrow/pkg/database/postgres"
	q "github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/pointer"
)

const (
	tableName = "escrow__core_offer"

	allColumns = `id, escrow, initializer, temp_token_account, receive_token_account, deposit_mint, deposit_amount, receive_mint, expected_amount, initialize_signature, acceptor, exchange_signature, state, version, created_at`
)

type model struct {
	Id                  sql.NullInt64  `db:"id"`
	Escrow              string         `db:"escrow"`
	Initializer         string         `db:"initializer"`
	TempTokenAccount    string         `db:"temp_token_account"`
	ReceiveTokenAccount string         `db:"receive_token_account"`
	DepositMint         string         `db:"deposit_mint"`
	DepositAmount       uint64         `db:"deposit_amount"`
	ReceiveMint         string         `db:"receive_mint"`
	ExpectedAmount      uint64         `db:"expected_amount"`
	InitializeSignature string         `db:"initialize_signature"`
	Acceptor            sql.NullString `db:"acceptor"`
	ExchangeSignature   sql.NullString `db:"exchange_signature"`
	State               uint8          `db:"state"`
	Version             uint64         `db:"version"`
	CreatedAt           time.Time      `db:"created_at"`
}

func toModel(obj *offer.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}

	return &model{
		Id:                  sql.NullInt64{Int64: int64(obj.Id), Valid: true},
		Escrow:              obj.Escrow,
		Initializer:         obj.Initializer,
		TempTokenAccount:    obj.TempTokenAccount,
		ReceiveTokenAccount: obj.ReceiveTokenAccount,
		DepositMint:         obj.DepositMint,
		DepositAmount:       obj.DepositAmount,
		ReceiveMint:         obj.ReceiveMint,
		ExpectedAmount:      obj.ExpectedAmount,
		InitializeSignature: obj.InitializeSignature,
		Acceptor:            pointer.ToNullString(obj.Acceptor),
		ExchangeSignature:   pointer.ToNullString(obj.ExchangeSignature),
		State:               uint8(obj.State),
		Version:             obj.Version,
		CreatedAt:           obj.CreatedAt,
	}, nil
}

func fromModel(m *model) *offer.Record {
	return &offer.Record{
		Id:                  uint64(m.Id.Int64),
		Escrow:              m.Escrow,
		Initializer:         m.Initializer,
		TempTokenAccount:    m.TempTokenAccount,
		ReceiveTokenAccount: m.ReceiveTokenAccount,
		DepositMint:         m.DepositMint,
		DepositAmount:       m.DepositAmount,
		ReceiveMint:         m.ReceiveMint,
		ExpectedAmount:      m.ExpectedAmount,
		InitializeSignature: m.InitializeSignature,
		Acceptor:            pointer.FromNullString(m.Acceptor),
		ExchangeSignature:   pointer.FromNullString(m.ExchangeSignature),
		State:               offer.State(m.State),
		Version:             m.Version,
		CreatedAt:           m.CreatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		existing := &model{}
		err := tx.GetContext(
			ctx,
			existing,
			`SELECT `+allColumns+` FROM `+tableName+` WHERE escrow = $1 FOR UPDATE`,
			m.Escrow,
		)

		switch {
		case pgutil.IsNoRows(err):
			query := `INSERT INTO ` + tableName + `
				(escrow, initializer, temp_token_account, receive_token_account, deposit_mint, deposit_amount, receive_mint, expected_amount, initialize_signature, acceptor, exchange_signature, state, version, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13)
				RETURNING ` + allColumns

			err = tx.QueryRowxContext(
				ctx,
				query,
				m.Escrow,
				m.Initializer,
				m.TempTokenAccount,
				m.ReceiveTokenAccount,
				m.DepositMint,
				m.DepositAmount,
				m.ReceiveMint,
				m.ExpectedAmount,
				m.InitializeSignature,
				m.Acceptor,
				m.ExchangeSignature,
				m.State,
				m.CreatedAt,
			).StructScan(m)
			return pgutil.CheckUniqueViolation(err, offer.ErrStaleVersion)
		case err != nil:
			return err
		}

		if offer.State(existing.State) == offer.StateExchanged {
			return offer.ErrInvalidTransition
		}
		if existing.Version != m.Version {
			return offer.ErrStaleVersion
		}

		query := `UPDATE ` + tableName + `
			SET acceptor = $2, exchange_signature = $3, state = $4, version = version + 1
			WHERE escrow = $1
			RETURNING ` + allColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.Escrow,
			m.Acceptor,
			m.ExchangeSignature,
			m.State,
		).StructScan(m)
	})
}

func dbGetByEscrow(ctx context.Context, db *sqlx.DB, escrow string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE escrow = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, escrow)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrNotFound)
	}
	return res, nil
}

func dbGetAllByInitializer(ctx context.Context, db *sqlx.DB, initializer string, state offer.State) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE initializer = $1 AND state = $2
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, initializer, state)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, offer.ErrNotFound
	}
	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state offer.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE (state = $1)`

	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, offer.ErrNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state offer.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE state = $1`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}
