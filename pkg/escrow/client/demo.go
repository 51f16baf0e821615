package client

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
)

type DemoArgs struct {
	Initializer ed25519.PrivateKey
	Acceptor    ed25519.PrivateKey

	AirdropLamports uint64
	Decimals        byte

	// The initializer offers DepositAmount of token X for ExpectedAmount of
	// token Y, which is also exactly what the acceptor is minted.
	DepositAmount  uint64
	ExpectedAmount uint64

	Legacy bool
}

type Balances struct {
	InitializerX uint64
	InitializerY uint64
	AcceptorX    uint64
	AcceptorY    uint64
}

type DemoResult struct {
	MintX ed25519.PublicKey
	MintY ed25519.PublicKey

	InitializerX ed25519.PublicKey
	InitializerY ed25519.PublicKey
	AcceptorX    ed25519.PublicKey
	AcceptorY    ed25519.PublicKey

	Escrow            *Escrow
	ExchangeSignature solana.Signature

	Before Balances
	After  Balances
}

// RunDemo runs a complete swap between two parties from scratch: both are
// funded, each creates a mint and a pair of token accounts, the initializer
// opens an escrow and the acceptor takes it.
func (c *Client) RunDemo(ctx context.Context, args *DemoArgs) (*DemoResult, error) {
	if args == nil || args.Initializer == nil || args.Acceptor == nil {
		return nil, ErrInvalidArguments
	}

	initializer := args.Initializer.Public().(ed25519.PublicKey)
	acceptor := args.Acceptor.Public().(ed25519.PublicKey)

	log := c.log.WithFields(map[string]interface{}{
		"method":      "RunDemo",
		"initializer": base58.Encode(initializer),
		"acceptor":    base58.Encode(acceptor),
	})

	keys, err := generateKeys(6)
	if err != nil {
		return nil, err
	}
	mintX, mintY := keys[0], keys[1]
	initializerX, initializerY := keys[2], keys[3]
	acceptorX, acceptorY := keys[4], keys[5]

	res := &DemoResult{
		MintX:        public(mintX),
		MintY:        public(mintY),
		InitializerX: public(initializerX),
		InitializerY: public(initializerY),
		AcceptorX:    public(acceptorX),
		AcceptorY:    public(acceptorY),
	}

	if err := c.parallel(ctx,
		func(ctx context.Context) error {
			_, err := c.Airdrop(ctx, initializer, args.AirdropLamports)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.Airdrop(ctx, acceptor, args.AirdropLamports)
			return err
		},
	); err != nil {
		return nil, errors.Wrap(err, "failed to fund parties")
	}
	log.Debug("parties funded")

	if err := c.parallel(ctx,
		func(ctx context.Context) error {
			_, err := c.CreateMint(ctx, args.Initializer, mintX, initializer, args.Decimals)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.CreateMint(ctx, args.Acceptor, mintY, acceptor, args.Decimals)
			return err
		},
	); err != nil {
		return nil, errors.Wrap(err, "failed to create mints")
	}
	log.Debug("mints created")

	if err := c.parallel(ctx,
		func(ctx context.Context) error {
			_, err := c.CreateTokenAccount(ctx, args.Initializer, initializerX, res.MintX, initializer)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.CreateTokenAccount(ctx, args.Initializer, initializerY, res.MintY, initializer)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.CreateTokenAccount(ctx, args.Acceptor, acceptorX, res.MintX, acceptor)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.CreateTokenAccount(ctx, args.Acceptor, acceptorY, res.MintY, acceptor)
			return err
		},
	); err != nil {
		return nil, errors.Wrap(err, "failed to create token accounts")
	}
	log.Debug("token accounts created")

	if err := c.parallel(ctx,
		func(ctx context.Context) error {
			_, err := c.MintTo(ctx, args.Initializer, res.MintX, res.InitializerX, args.DepositAmount)
			return err
		},
		func(ctx context.Context) error {
			_, err := c.MintTo(ctx, args.Acceptor, res.MintY, res.AcceptorY, args.ExpectedAmount)
			return err
		},
	); err != nil {
		return nil, errors.Wrap(err, "failed to mint tokens")
	}

	res.Before, err = c.balances(ctx, res)
	if err != nil {
		return nil, err
	}

	res.Escrow, err = c.SetupEscrow(ctx, &SetupEscrowArgs{
		Initializer:    args.Initializer,
		DepositAccount: res.InitializerX,
		ReceiveAccount: res.InitializerY,
		DepositAmount:  args.DepositAmount,
		ExpectedAmount: args.ExpectedAmount,
		Legacy:         args.Legacy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup escrow")
	}

	res.ExchangeSignature, err = c.MakeExchange(ctx, &MakeExchangeArgs{
		Acceptor:      args.Acceptor,
		Escrow:        res.Escrow.Address,
		DebitAccount:  res.AcceptorY,
		CreditAccount: res.AcceptorX,
		Amount:        args.ExpectedAmount,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange")
	}

	res.After, err = c.balances(ctx, res)
	if err != nil {
		return nil, err
	}

	log.Debug("demo complete")
	return res, nil
}

func (c *Client) balances(ctx context.Context, res *DemoResult) (Balances, error) {
	var balances Balances
	for _, b := range []struct {
		account ed25519.PublicKey
		dst     *uint64
	}{
		{res.InitializerX, &balances.InitializerX},
		{res.InitializerY, &balances.InitializerY},
		{res.AcceptorX, &balances.AcceptorX},
		{res.AcceptorY, &balances.AcceptorY},
	} {
		amount, err := c.GetTokenBalance(ctx, b.account)
		if err != nil {
			return balances, err
		}
		*b.dst = amount
	}
	return balances, nil
}

// parallel runs fns concurrently, bounded by the configured concurrency,
// and returns the first error.
func (c *Client) parallel(ctx context.Context, fns ...func(ctx context.Context) error) error {
	tracer := metrics.TraceMethodCall(ctx, "escrow/client", "parallel")
	defer tracer.End()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(int(c.conf.maxConcurrency.Get(ctx)))

	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			return fn(gCtx)
		})
	}

	err := g.Wait()
	tracer.OnError(err)
	return err
}

func generateKeys(n int) ([]ed25519.PrivateKey, error) {
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		_, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, err
		}
		keys[i] = priv
	}
	return keys, nil
}

func public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
