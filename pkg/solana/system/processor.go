package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
)

// Processor executes the subset of system program instructions needed to
// fund and allocate accounts.
type Processor struct {
	log *logrus.Entry
}

func NewProcessor() *Processor {
	return &Processor{
		log: logrus.StandardLogger().WithField("type", "solana/system/processor"),
	}
}

func (p *Processor) Process(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	if len(data) < 4 {
		return solana.InstructionErrorInvalidInstructionData
	}

	switch binary.LittleEndian.Uint32(data) {
	case commandCreateAccount:
		return p.createAccount(ctx, programID, accounts, data)
	case commandTransfer:
		return p.transfer(ctx, accounts, data)
	default:
		return solana.InstructionErrorInvalidInstructionData
	}
}

func (p *Processor) createAccount(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	args, err := DecodeCreateAccountData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	funder, address := accounts[0], accounts[1]
	if !funder.IsSigner || !address.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if !address.IsEmpty() || !address.IsOwnedBy(programID) {
		ctx.Log("Create Account: account %s already in use", base58.Encode(address.PublicKey))
		return ErrorAccountAlreadyInUse
	}
	if args.Size > MaxPermittedDataLength {
		return ErrorInvalidAccountDataLength
	}
	if funder.Lamports < args.Lamports {
		ctx.Log("Transfer: insufficient lamports %d, need %d", funder.Lamports, args.Lamports)
		return ErrorResultWithNegativeLamports
	}

	funder.Lamports -= args.Lamports
	address.Lamports += args.Lamports
	address.Data = make([]byte, args.Size)
	address.Owner = args.Owner

	p.log.WithFields(logrus.Fields{
		"method":  "createAccount",
		"address": base58.Encode(address.PublicKey),
		"owner":   base58.Encode(args.Owner),
		"size":    args.Size,
	}).Trace("account created")

	return nil
}

func (p *Processor) transfer(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	lamports, err := DecodeTransferData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}
	if len(accounts) < 2 {
		return solana.InstructionErrorNotEnoughAccountKeys
	}

	from, to := accounts[0], accounts[1]
	if !from.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if len(from.Data) > 0 {
		ctx.Log("Transfer: `from` must not carry data")
		return solana.InstructionErrorInvalidArgument
	}
	if from.Lamports < lamports {
		ctx.Log("Transfer: insufficient lamports %d, need %d", from.Lamports, lamports)
		return ErrorResultWithNegativeLamports
	}
	if to.Lamports+lamports < to.Lamports {
		return solana.InstructionErrorArithmeticOverflow
	}

	from.Lamports -= lamports
	to.Lamports += lamports

	return nil
}
