package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

type InitEscrowInstructionArgs struct {
	Amount uint64
}

type InitEscrowInstructionAccounts struct {
	Initializer           ed25519.PublicKey
	TempTokenAccount      ed25519.PublicKey
	TokenToReceiveAccount ed25519.PublicKey
	Escrow                ed25519.PublicKey
}

func NewInitEscrowInstruction(
	accounts *InitEscrowInstructionAccounts,
	args *InitEscrowInstructionArgs,
) solana.Instruction {
	data := (&Instruction{
		Type:   InstructionTypeInitEscrow,
		Amount: args.Amount,
	}).Marshal()

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Initializer,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.TempTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TokenToReceiveAccount,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

// NewLegacyInitEscrowInstruction builds InitEscrow with the rent sysvar at
// index 4, ahead of the token program, as deployed clients still send it.
func NewLegacyInitEscrowInstruction(
	accounts *InitEscrowInstructionAccounts,
	args *InitEscrowInstructionArgs,
) solana.Instruction {
	ixn := NewInitEscrowInstruction(accounts, args)

	tokenProgram := ixn.Accounts[4]
	ixn.Accounts = append(ixn.Accounts[:4], solana.AccountMeta{
		PublicKey:  SYSVAR_RENT_PUBKEY,
		IsWritable: false,
		IsSigner:   false,
	}, tokenProgram)

	return ixn
}
