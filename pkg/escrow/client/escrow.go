package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/pointer"
	"github.com/code-payments/code-escrow/pkg/solana"
	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

const (
	escrowInitializedEventName = "EscrowInitialized"
	escrowExchangedEventName   = "EscrowExchanged"
)

type SetupEscrowArgs struct {
	Initializer ed25519.PrivateKey

	// DepositAccount holds the tokens being offered, ReceiveAccount is
	// where the expected tokens are paid to. Both belong to the initializer.
	DepositAccount ed25519.PublicKey
	ReceiveAccount ed25519.PublicKey

	DepositAmount  uint64
	ExpectedAmount uint64

	// Legacy places the rent sysvar ahead of the token program in InitEscrow
	Legacy bool
}

// Escrow is an escrow opened by SetupEscrow.
type Escrow struct {
	Address          ed25519.PublicKey
	TempTokenAccount ed25519.PublicKey
	Signature        solana.Signature
	State            *escrow_program.EscrowAccount
}

// SetupEscrow opens an escrow in a single transaction: a fresh temp token
// account is created and funded with the deposit, and the escrow account is
// created and initialized, which hands the temp account to the custody
// authority. Either all of it lands or none of it does.
func (c *Client) SetupEscrow(ctx context.Context, args *SetupEscrowArgs) (*Escrow, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "SetupEscrow").End()

	if args == nil || args.Initializer == nil || args.DepositAmount == 0 || args.ExpectedAmount == 0 {
		return nil, ErrInvalidArguments
	}
	// The offer is saved after the escrow lands, so reject what the book can't hold up front.
	if c.offers != nil && (args.DepositAmount > offer.MaxAmount || args.ExpectedAmount > offer.MaxAmount) {
		return nil, errors.Wrap(ErrInvalidArguments, "amount exceeds offer book range")
	}

	commitment, err := c.commitment(ctx)
	if err != nil {
		return nil, err
	}

	initializer := args.Initializer.Public().(ed25519.PublicKey)

	log := c.log.WithFields(logrus.Fields{
		"method":          "SetupEscrow",
		"initializer":     base58.Encode(initializer),
		"deposit_amount":  args.DepositAmount,
		"expected_amount": args.ExpectedAmount,
	})

	deposit, err := c.token.GetAccount(args.DepositAccount, nil, commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deposit account")
	}
	receive, err := c.token.GetAccount(args.ReceiveAccount, nil, commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get receive account")
	}
	if !bytes.Equal(deposit.Owner, initializer) || !bytes.Equal(receive.Owner, initializer) {
		return nil, errors.Wrap(ErrInvalidArguments, "token accounts must be owned by the initializer")
	}

	_, tempKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	_, escrowKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	temp := tempKey.Public().(ed25519.PublicKey)
	escrow := escrowKey.Public().(ed25519.PublicKey)

	escrowRent, err := c.sc.GetMinimumBalanceForRentExemption(escrow_program.EscrowAccountSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow rent")
	}

	instructions, err := c.createTokenAccountInstructions(initializer, temp, deposit.Mint, initializer)
	if err != nil {
		return nil, err
	}

	initAccounts := &escrow_program.InitEscrowInstructionAccounts{
		Initializer:           initializer,
		TempTokenAccount:      temp,
		TokenToReceiveAccount: args.ReceiveAccount,
		Escrow:                escrow,
	}
	initArgs := &escrow_program.InitEscrowInstructionArgs{
		Amount: args.ExpectedAmount,
	}

	initEscrow := escrow_program.NewInitEscrowInstruction(initAccounts, initArgs)
	if args.Legacy {
		initEscrow = escrow_program.NewLegacyInitEscrowInstruction(initAccounts, initArgs)
	}
	initEscrow.Program = c.programID

	instructions = append(
		instructions,
		token.Transfer(args.DepositAccount, temp, initializer, args.DepositAmount),
		system.CreateAccount(initializer, escrow, c.programID, escrowRent, escrow_program.EscrowAccountSize),
		initEscrow,
	)

	sig, err := c.submit(ctx, []ed25519.PrivateKey{args.Initializer, tempKey, escrowKey}, instructions...)
	if err != nil {
		log.WithError(err).Info("failed to setup escrow")
		return nil, err
	}

	log = log.WithFields(logrus.Fields{
		"escrow":    base58.Encode(escrow),
		"signature": sig.String(),
	})
	log.Debug("escrow initialized")

	metrics.RecordEvent(ctx, escrowInitializedEventName, map[string]interface{}{
		"escrow":          base58.Encode(escrow),
		"initializer":     base58.Encode(initializer),
		"deposit_amount":  args.DepositAmount,
		"expected_amount": args.ExpectedAmount,
	})

	state, err := c.GetEscrow(ctx, escrow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get initialized escrow")
	}

	res := &Escrow{
		Address:          escrow,
		TempTokenAccount: temp,
		Signature:        sig,
		State:            state,
	}

	if c.offers != nil {
		record := &offer.Record{
			Escrow:      base58.Encode(escrow),
			Initializer: base58.Encode(initializer),

			TempTokenAccount:    base58.Encode(temp),
			ReceiveTokenAccount: base58.Encode(args.ReceiveAccount),

			DepositMint:   base58.Encode(deposit.Mint),
			DepositAmount: args.DepositAmount,

			ReceiveMint:    base58.Encode(receive.Mint),
			ExpectedAmount: args.ExpectedAmount,

			InitializeSignature: sig.String(),

			State: offer.StateInitialized,

			CreatedAt: time.Now(),
		}
		if err := c.offers.Save(ctx, record); err != nil {
			log.WithError(err).Warn("failed to record offer")
			return res, errors.Wrap(err, "escrow initialized, but offer was not recorded")
		}
	}

	return res, nil
}

type MakeExchangeArgs struct {
	Acceptor ed25519.PrivateKey

	Escrow ed25519.PublicKey

	// DebitAccount pays the expected amount, CreditAccount receives the
	// deposit. Both belong to the acceptor.
	DebitAccount  ed25519.PublicKey
	CreditAccount ed25519.PublicKey

	Amount uint64
}

// MakeExchange takes an open escrow. The remaining accounts are read from
// the escrow record, so the acceptor only needs the escrow address.
func (c *Client) MakeExchange(ctx context.Context, args *MakeExchangeArgs) (solana.Signature, error) {
	defer metrics.TraceMethodCall(ctx, "escrow/client", "MakeExchange").End()

	if args == nil || args.Acceptor == nil || len(args.Escrow) != ed25519.PublicKeySize {
		return solana.Signature{}, ErrInvalidArguments
	}

	acceptor := args.Acceptor.Public().(ed25519.PublicKey)

	log := c.log.WithFields(logrus.Fields{
		"method":   "MakeExchange",
		"escrow":   base58.Encode(args.Escrow),
		"acceptor": base58.Encode(acceptor),
		"amount":   args.Amount,
	})

	state, err := c.GetEscrow(ctx, args.Escrow)
	if err != nil {
		return solana.Signature{}, err
	}

	authority, _, err := escrow_program.GetAuthorityAddress(&escrow_program.GetAuthorityAddressArgs{
		Program: c.programID,
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to derive custody authority")
	}

	exchange := escrow_program.NewExchangeInstruction(
		&escrow_program.ExchangeInstructionAccounts{
			Acceptor:                  acceptor,
			AcceptorDebitAccount:      args.DebitAccount,
			AcceptorCreditAccount:     args.CreditAccount,
			TempTokenAccount:          state.TempTokenAccountPubkey,
			Initializer:               state.InitializerPubkey,
			InitializerReceiveAccount: state.InitializerTokenToReceiveAccountPubkey,
			Escrow:                    args.Escrow,
			Authority:                 authority,
		},
		&escrow_program.ExchangeInstructionArgs{
			Amount: args.Amount,
		},
	)
	exchange.Program = c.programID

	sig, err := c.submit(ctx, []ed25519.PrivateKey{args.Acceptor}, exchange)
	if err != nil {
		log.WithError(err).Info("failed to exchange")
		return sig, err
	}

	log = log.WithField("signature", sig.String())
	log.Debug("escrow exchanged")

	metrics.RecordEvent(ctx, escrowExchangedEventName, map[string]interface{}{
		"escrow":   base58.Encode(args.Escrow),
		"acceptor": base58.Encode(acceptor),
		"amount":   args.Amount,
	})

	if c.offers != nil {
		record, err := c.offers.GetByEscrow(ctx, base58.Encode(args.Escrow))
		if err == offer.ErrNotFound {
			log.Debug("escrow has no offer to update")
			return sig, nil
		} else if err != nil {
			return sig, errors.Wrap(err, "exchanged, but failed to get offer")
		}

		record.Acceptor = pointer.To(base58.Encode(acceptor))
		record.ExchangeSignature = pointer.To(sig.String())
		record.State = offer.StateExchanged
		if err := c.offers.Save(ctx, record); err != nil {
			log.WithError(err).Warn("failed to update offer")
			return sig, errors.Wrap(err, "exchanged, but offer was not updated")
		}
	}

	return sig, nil
}

// GetEscrow returns the initialized escrow record at address.
func (c *Client) GetEscrow(ctx context.Context, address ed25519.PublicKey) (*escrow_program.EscrowAccount, error) {
	commitment, err := c.commitment(ctx)
	if err != nil {
		return nil, err
	}

	info, err := c.sc.GetAccountInfo(address, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrEscrowNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow account")
	}

	if !bytes.Equal(info.Owner, c.programID) {
		return nil, ErrInvalidEscrow
	}

	var state escrow_program.EscrowAccount
	if err := state.Unmarshal(info.Data); err != nil {
		return nil, ErrInvalidEscrow
	}
	if !state.IsInitialized {
		return nil, ErrEscrowNotFound
	}
	return &state, nil
}

// GetOpenOffers pages through offers that are still waiting for an acceptor.
func (c *Client) GetOpenOffers(ctx context.Context, opts ...query.Option) ([]*offer.Record, error) {
	if c.offers == nil {
		return nil, errors.New("offer book not configured")
	}

	req, err := query.DefaultPaginationHandler(opts...)
	if err != nil {
		return nil, err
	}

	return c.offers.GetAllByState(ctx, offer.StateInitialized, req.Cursor, req.Limit, req.SortBy)
}
