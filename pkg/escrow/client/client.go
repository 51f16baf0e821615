package client

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	submitTransactionMetricName = "EscrowClient.SubmitTransaction"
)

var (
	ErrEscrowNotFound   = errors.New("escrow not found")
	ErrInvalidEscrow    = errors.New("account is not an escrow")
	ErrNotConfirmed     = errors.New("transaction not confirmed")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Client drives the escrow program from the outside: it funds accounts,
// creates the token accounts a swap needs, and submits InitEscrow and
// Exchange transactions, keeping the offer book in sync when one is set.
type Client struct {
	log  *logrus.Entry
	conf *conf

	sc    solana.Client
	token *token.Client

	// offers is optional
	offers offer.Store

	programID ed25519.PublicKey
}

// New returns a Client for the escrow program deployed at programID.
func New(sc solana.Client, offers offer.Store, programID ed25519.PublicKey, configProvider ConfigProvider) *Client {
	return &Client{
		log:       logrus.StandardLogger().WithField("type", "escrow/client"),
		conf:      configProvider(),
		sc:        sc,
		token:     token.NewClient(sc),
		offers:    offers,
		programID: programID,
	}
}

// ProgramID returns the escrow program the client targets.
func (c *Client) ProgramID() ed25519.PublicKey {
	return c.programID
}

// Airdrop requests lamports for an account and waits for them to land.
func (c *Client) Airdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "Airdrop").End()

	commitment, err := c.commitment(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.sc.RequestAirdrop(account, lamports, commitment)
	if err != nil {
		return sig, errors.Wrapf(err, "failed to request airdrop for %s", base58.Encode(account))
	}

	return sig, c.awaitConfirmation(ctx, sig)
}

// submit builds, signs and submits a transaction paid for by the first
// signer, then waits for it to be confirmed.
func (c *Client) submit(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, errors.Wrap(ErrInvalidArguments, "at least one signer is required")
	}

	start := time.Now()
	defer func() {
		metrics.RecordDuration(ctx, submitTransactionMetricName, time.Since(start))
	}()

	commitment, err := c.commitment(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	blockhash, err := c.sc.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
	}

	payer := signers[0].Public().(ed25519.PublicKey)
	txn := solana.NewTransaction(payer, instructions...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	sig, err := c.sc.SubmitTransaction(txn, commitment)
	if err != nil {
		return sig, err
	}

	return sig, c.awaitConfirmation(ctx, sig)
}

// awaitConfirmation polls the signature status until the transaction is
// confirmed at the configured commitment or it failed.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	commitment, err := c.commitment(ctx)
	if err != nil {
		return err
	}

	var txErr error
	_, err = retry.RetryWithContext(
		ctx,
		func() error {
			status, err := c.sc.GetSignatureStatus(sig, commitment)
			if err == solana.ErrSignatureNotFound {
				return ErrNotConfirmed
			} else if err != nil {
				return err
			}

			if status.ErrorResult != nil {
				txErr = status.ErrorResult
				return nil
			}

			if commitment == solana.CommitmentFinalized && !status.Finalized() {
				return ErrNotConfirmed
			}
			if !status.Confirmed() {
				return ErrNotConfirmed
			}
			return nil
		},
		retry.RetriableErrors(ErrNotConfirmed),
		retry.Limit(uint(c.conf.maxConfirmationAttempts.Get(ctx))),
		retry.Backoff(backoff.Constant(c.conf.confirmationPollInterval.Get(ctx)), c.conf.confirmationPollInterval.Get(ctx)),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to confirm %s", sig.String())
	}
	return txErr
}

func (c *Client) commitment(ctx context.Context) (solana.Commitment, error) {
	commitment, err := solana.CommitmentFromString(c.conf.commitment.Get(ctx))
	if err != nil {
		return solana.Commitment{}, errors.Wrap(err, "invalid commitment")
	}
	return commitment, nil
}
