package cli

import (
	"crypto/ed25519"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/app"
	"github.com/code-payments/code-escrow/pkg/data/offer"
	offer_memory "github.com/code-payments/code-escrow/pkg/data/offer/memory"
	offer_postgres "github.com/code-payments/code-escrow/pkg/data/offer/postgres"
	"github.com/code-payments/code-escrow/pkg/escrow"
	"github.com/code-payments/code-escrow/pkg/escrow/client"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/localnet"
)

// environment is everything a command needs to talk to the escrow program.
type environment struct {
	programID ed25519.PublicKey

	sc     solana.Client
	bank   *localnet.Bank // nil unless running against localnet
	db     *sql.DB        // nil unless the offer book is in postgres
	offers offer.Store
	client *client.Client
}

func newEnvironment(provider metrics.Provider) (*environment, error) {
	program, err := programID()
	if err != nil {
		return nil, err
	}

	env := &environment{
		programID: program,
	}

	if len(config.SolanaRpcEndpoint) > 0 {
		env.sc = solana.New(string(solana.ResolveEnvironment(config.SolanaRpcEndpoint)))
	} else {
		bank, err := localnet.New(provider, localnet.WithEnvConfigs())
		if err != nil {
			return nil, errors.Wrap(err, "failed to start localnet")
		}
		bank.RegisterProgram(program, escrow.NewProcessor())

		env.bank = bank
		env.sc = bank
	}

	env.db, err = app.OpenDatabase(config)
	if err != nil {
		return nil, err
	}
	if env.db != nil {
		env.offers = offer_postgres.New(env.db)
	} else {
		env.offers = offer_memory.New()
	}

	env.client = client.New(env.sc, env.offers, program, client.WithEnvConfigs())
	return env, nil
}

func (e *environment) Close() {
	if e.db != nil {
		e.db.Close()
	}
}
