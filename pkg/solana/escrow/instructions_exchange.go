package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

type ExchangeInstructionArgs struct {
	Amount uint64
}

type ExchangeInstructionAccounts struct {
	Acceptor                  ed25519.PublicKey
	AcceptorDebitAccount      ed25519.PublicKey
	AcceptorCreditAccount     ed25519.PublicKey
	TempTokenAccount          ed25519.PublicKey
	Initializer               ed25519.PublicKey
	InitializerReceiveAccount ed25519.PublicKey
	Escrow                    ed25519.PublicKey
	Authority                 ed25519.PublicKey
}

func NewExchangeInstruction(
	accounts *ExchangeInstructionAccounts,
	args *ExchangeInstructionArgs,
) solana.Instruction {
	data := (&Instruction{
		Type:   InstructionTypeExchange,
		Amount: args.Amount,
	}).Marshal()

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Acceptor,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.AcceptorDebitAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.AcceptorCreditAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TempTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Initializer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.InitializerReceiveAccount,
				IsWritable: true,
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
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
