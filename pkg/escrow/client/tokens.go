package client

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// CreateMint creates and initializes a mint, paid for by payer.
func (c *Client) CreateMint(ctx context.Context, payer, mint ed25519.PrivateKey, authority ed25519.PublicKey, decimals byte) (solana.Signature, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "CreateMint").End()

	lamports, err := c.sc.GetMinimumBalanceForRentExemption(token.MintSize)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get mint rent")
	}

	payerKey := payer.Public().(ed25519.PublicKey)
	mintKey := mint.Public().(ed25519.PublicKey)

	return c.submit(
		ctx,
		[]ed25519.PrivateKey{payer, mint},
		system.CreateAccount(payerKey, mintKey, token.ProgramKey, lamports, token.MintSize),
		token.InitializeMint(mintKey, authority, nil, decimals),
	)
}

// CreateTokenAccount creates and initializes a token account for owner,
// paid for by payer.
func (c *Client) CreateTokenAccount(ctx context.Context, payer, account ed25519.PrivateKey, mint, owner ed25519.PublicKey) (solana.Signature, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "CreateTokenAccount").End()

	instructions, err := c.createTokenAccountInstructions(payer.Public().(ed25519.PublicKey), account.Public().(ed25519.PublicKey), mint, owner)
	if err != nil {
		return solana.Signature{}, err
	}

	return c.submit(ctx, []ed25519.PrivateKey{payer, account}, instructions...)
}

// MintTo mints amount tokens into destination. The mint authority pays.
func (c *Client) MintTo(ctx context.Context, authority ed25519.PrivateKey, mint, destination ed25519.PublicKey, amount uint64) (solana.Signature, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "MintTo").End()

	return c.submit(
		ctx,
		[]ed25519.PrivateKey{authority},
		token.MintTo(mint, destination, authority.Public().(ed25519.PublicKey), amount),
	)
}

// GetTokenBalance returns the balance of a token account.
func (c *Client) GetTokenBalance(_ context.Context, account ed25519.PublicKey) (uint64, error) {
	amount, _, err := c.sc.GetTokenAccountBalance(account)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get token balance")
	}
	return amount, nil
}

func (c *Client) createTokenAccountInstructions(payer, account, mint, owner ed25519.PublicKey) ([]solana.Instruction, error) {
	lamports, err := c.sc.GetMinimumBalanceForRentExemption(token.AccountSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token account rent")
	}

	return []solana.Instruction{
		system.CreateAccount(payer, account, token.ProgramKey, lamports, token.AccountSize),
		token.InitializeAccount(account, mint, owner),
	}, nil
}
