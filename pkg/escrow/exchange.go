package escrow

import (
	"bytes"
	"crypto/ed25519"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// Exchange settles an escrow. The acceptor pays the expected amount to the
// initializer and receives the full custody balance, after which the custody
// account and the escrow record are closed with their lamports refunded to
// the initializer.
//
// Every precondition is checked before any token instruction is issued, so
// a rejected exchange leaves all balances untouched.
func Exchange(programID ed25519.PublicKey, accounts *ExchangeAccounts, ledger TokenLedger, amount uint64) error {
	if !accounts.Acceptor.IsSigner {
		return escrow_program.ErrMissingSignature
	}

	if accounts.Escrow.Lamports == 0 && len(accounts.Escrow.Data) == 0 {
		return escrow_program.ErrAccountNotFound
	}
	if !accounts.Escrow.IsOwnedBy(programID) {
		return escrow_program.ErrIncorrectProgramID
	}

	var record escrow_program.EscrowAccount
	if err := record.Unmarshal(accounts.Escrow.Data); err != nil || !record.IsInitialized {
		return escrow_program.ErrNotInitialized
	}

	if amount != record.ExpectedAmount {
		return escrow_program.ErrExpectedAmountMismatch
	}

	authority, bump, err := escrow_program.GetAuthorityAddress(&escrow_program.GetAuthorityAddressArgs{
		Program: programID,
	})
	if err != nil || !bytes.Equal(authority, accounts.Authority.PublicKey) {
		return escrow_program.ErrInvalidAuthority
	}

	if !bytes.Equal(record.TempTokenAccountPubkey, accounts.Custody.PublicKey) ||
		!bytes.Equal(record.InitializerPubkey, accounts.Initializer.PublicKey) ||
		!bytes.Equal(record.InitializerTokenToReceiveAccountPubkey, accounts.InitializerReceive.PublicKey) {
		return escrow_program.ErrInvalidAccountData
	}

	if !bytes.Equal(accounts.TokenProgram.PublicKey, token.ProgramKey) {
		return escrow_program.ErrIncorrectProgramID
	}

	custody, err := ledger.GetAccount(accounts.Custody)
	if err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	if !bytes.Equal(custody.Owner, authority) {
		return escrow_program.ErrInvalidAuthority
	}
	if custody.Amount == 0 {
		return escrow_program.ErrInsufficientFunds
	}

	debit, err := ledger.GetAccount(accounts.AcceptorDebit)
	if err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	credit, err := ledger.GetAccount(accounts.AcceptorCredit)
	if err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	receive, err := ledger.GetAccount(accounts.InitializerReceive)
	if err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	if !bytes.Equal(debit.Mint, receive.Mint) || !bytes.Equal(credit.Mint, custody.Mint) {
		return escrow_program.ErrInvalidAccountData
	}

	if debit.Amount < amount {
		return escrow_program.ErrInsufficientFunds
	}

	refund := accounts.Escrow.Lamports + accounts.Custody.Lamports
	if refund < accounts.Escrow.Lamports || accounts.Initializer.Lamports+refund < accounts.Initializer.Lamports {
		return escrow_program.ErrAmountOverflow
	}

	seeds := escrow_program.AuthoritySignerSeeds(bump)

	if err := ledger.Transfer(accounts.AcceptorDebit, accounts.InitializerReceive, accounts.Acceptor, amount); err != nil {
		return err
	}
	if err := ledger.Transfer(accounts.Custody, accounts.AcceptorCredit, accounts.Authority, custody.Amount, seeds); err != nil {
		return err
	}
	if err := ledger.CloseAccount(accounts.Custody, accounts.Initializer, accounts.Authority, seeds); err != nil {
		return err
	}

	accounts.Initializer.Lamports += accounts.Escrow.Lamports
	accounts.Escrow.Lamports = 0
	accounts.Escrow.Data = make([]byte, len(accounts.Escrow.Data))

	return nil
}
