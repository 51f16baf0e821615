package escrow

import (
	"bytes"
	"crypto/ed25519"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

// Initialize opens an escrow. The initializer's temp token account is handed
// to the custody authority and the amount expected in return is recorded.
//
// Every precondition is checked before the escrow record is written or any
// token instruction is issued.
func Initialize(programID ed25519.PublicKey, accounts *InitializeAccounts, ledger TokenLedger, amount uint64) error {
	if !accounts.Initializer.IsSigner {
		return escrow_program.ErrMissingSignature
	}

	if bytes.Equal(accounts.Initializer.PublicKey, accounts.Escrow.PublicKey) ||
		bytes.Equal(accounts.TempToken.PublicKey, accounts.ReceiveToken.PublicKey) {
		return escrow_program.ErrInvalidAccountData
	}

	if !accounts.ReceiveToken.IsOwnedBy(token.ProgramKey) {
		return escrow_program.ErrIncorrectProgramID
	}

	if !accounts.Escrow.IsOwnedBy(programID) {
		return escrow_program.ErrIncorrectProgramID
	}

	if !bytes.Equal(accounts.TokenProgram.PublicKey, token.ProgramKey) {
		return escrow_program.ErrIncorrectProgramID
	}

	if len(accounts.Escrow.Data) != escrow_program.EscrowAccountSize {
		return escrow_program.ErrInvalidAccountData
	}
	if !accounts.Rent.IsExempt(accounts.Escrow.Lamports, escrow_program.EscrowAccountSize) {
		return escrow_program.ErrNotRentExempt
	}

	var record escrow_program.EscrowAccount
	if err := record.Unmarshal(accounts.Escrow.Data); err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	if record.IsInitialized {
		return escrow_program.ErrAlreadyInitialized
	}

	if amount == 0 {
		return escrow_program.ErrInvalidInstruction
	}

	temp, err := ledger.GetAccount(accounts.TempToken)
	if err != nil {
		return escrow_program.ErrInvalidAccountData
	}
	if !bytes.Equal(temp.Owner, accounts.Initializer.PublicKey) {
		return escrow_program.ErrInvalidAuthority
	}
	// A close authority left on the temp account would block the close on
	// exchange and strand the deposit.
	if len(temp.CloseAuthority) > 0 {
		return escrow_program.ErrInvalidAuthority
	}

	authority, _, err := escrow_program.GetAuthorityAddress(&escrow_program.GetAuthorityAddressArgs{
		Program: programID,
	})
	if err != nil {
		return escrow_program.ErrInvalidAuthority
	}

	record = escrow_program.EscrowAccount{
		IsInitialized:                          true,
		InitializerPubkey:                      accounts.Initializer.PublicKey,
		TempTokenAccountPubkey:                 accounts.TempToken.PublicKey,
		InitializerTokenToReceiveAccountPubkey: accounts.ReceiveToken.PublicKey,
		ExpectedAmount:                         amount,
	}
	copy(accounts.Escrow.Data, record.Marshal())

	return ledger.SetAuthority(accounts.TempToken, accounts.Initializer, authority)
}
