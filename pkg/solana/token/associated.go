package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey  is the address of the associated token account program that should be used.
//
// Current key: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

const (
	commandCreate byte = iota
	commandCreateIdempotent
)

// GetAssociatedAccount returns the associated account address for an SPL token.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		wallet,
		ProgramKey,
		mint,
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/0639953c7dd0f5228c3ceda3ba68fece3b46ff1d/associated-token-account/program/src/lib.rs#L54
func CreateAssociatedTokenAccount(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(commandCreate, subsidizer, wallet, mint)
}

// CreateAssociatedTokenAccountIdempotent is CreateAssociatedTokenAccount, but
// succeeds without effect if the account already exists for the wallet.
func CreateAssociatedTokenAccountIdempotent(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return createAssociatedTokenAccount(commandCreateIdempotent, subsidizer, wallet, mint)
}

func createAssociatedTokenAccount(command byte, subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := GetAssociatedAccount(wallet, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		[]byte{command},
		solana.NewAccountMeta(subsidizer, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	), addr, nil
}

// AssociatedProcessor executes the associated token account program, which
// creates token accounts at addresses derived from the wallet and mint.
type AssociatedProcessor struct{}

func NewAssociatedProcessor() *AssociatedProcessor {
	return &AssociatedProcessor{}
}

func (p *AssociatedProcessor) Process(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0, len(data) == 1 && data[0] == commandCreate:
	case len(data) == 1 && data[0] == commandCreateIdempotent:
		idempotent = true
	default:
		return solana.InstructionErrorInvalidInstructionData
	}

	if len(accounts) < 6 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	funder, address, wallet, mint, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3], accounts[5]
	if !bytes.Equal(tokenProgram.PublicKey, ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	expected, bump, err := solana.FindProgramAddressAndBump(programID, wallet.PublicKey, tokenProgram.PublicKey, mint.PublicKey)
	if err != nil || !bytes.Equal(expected, address.PublicKey) {
		ctx.Log("Error: Associated address does not match seed derivation")
		return solana.InstructionErrorInvalidSeeds
	}

	if idempotent && address.IsOwnedBy(ProgramKey) {
		var existing Account
		if existing.Unmarshal(address.Data) &&
			existing.IsInitialized() &&
			bytes.Equal(existing.Owner, wallet.PublicKey) &&
			bytes.Equal(existing.Mint, mint.PublicKey) {
			return nil
		}
		return solana.InstructionErrorInvalidAccountData
	}

	seeds := [][]byte{wallet.PublicKey, tokenProgram.PublicKey, mint.PublicKey, {bump}}
	create := system.CreateAccount(
		funder.PublicKey,
		address.PublicKey,
		ProgramKey,
		ctx.Rent().MinimumBalance(AccountSize),
		AccountSize,
	)
	if err := ctx.InvokeSigned(create, accounts, seeds); err != nil {
		return err
	}

	return ctx.Invoke(InitializeAccount(address.PublicKey, mint.PublicKey, wallet.PublicKey), accounts)
}
