package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/data/offer/tests"

	postgrestest "github.com/code-payments/code-escrow/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE escrow__core_offer(
			id SERIAL NOT NULL PRIMARY KEY,

			escrow TEXT NOT NULL,
			initializer TEXT NOT NULL,

			temp_token_account TEXT NOT NULL,
			receive_token_account TEXT NOT NULL,

			deposit_mint TEXT NOT NULL,
			deposit_amount BIGINT NOT NULL CHECK (deposit_amount > 0),

			receive_mint TEXT NOT NULL,
			expected_amount BIGINT NOT NULL CHECK (expected_amount > 0),

			initialize_signature TEXT NOT NULL,

			acceptor TEXT NULL,
			exchange_signature TEXT NULL,

			state INTEGER NOT NULL,

			version INTEGER NOT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL,

			CONSTRAINT escrow__core_offer__uniq__escrow UNIQUE (escrow)
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE escrow__core_offer;
	`
)

var (
	testStore offer.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		logrus.StandardLogger().WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			logrus.StandardLogger().WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestOfferPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
