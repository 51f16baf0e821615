package escrow

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
)

// Processor is the escrow program's entrypoint. It decodes instruction data,
// maps the positional accounts and dispatches to the state machine, using
// the token program through cross-program invocations.
type Processor struct {
	log *logrus.Entry
}

func NewProcessor() *Processor {
	return &Processor{
		log: logrus.StandardLogger().WithField("type", "escrow/processor"),
	}
}

func (p *Processor) Process(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, data []byte) error {
	ixn, err := escrow_program.UnmarshalInstruction(data)
	if err != nil {
		return escrow_program.ErrInvalidInstruction
	}

	ledger := NewCPILedger(ctx, accounts)

	switch ixn.Type {
	case escrow_program.InstructionTypeInitEscrow:
		ctx.Log("Instruction: InitEscrow")
		return p.initEscrow(ctx, programID, accounts, ledger, ixn.Amount)
	case escrow_program.InstructionTypeExchange:
		ctx.Log("Instruction: Exchange")
		return p.exchange(programID, accounts, ledger, ixn.Amount)
	default:
		return escrow_program.ErrInvalidInstruction
	}
}

func (p *Processor) initEscrow(ctx runtime.InvokeContext, programID ed25519.PublicKey, accounts []*runtime.AccountInfo, ledger TokenLedger, amount uint64) error {
	parsed, err := ParseInitializeAccounts(accounts, ctx.Rent())
	if err != nil {
		return err
	}

	log := p.log.WithFields(logrus.Fields{
		"method":      "initEscrow",
		"escrow":      base58.Encode(parsed.Escrow.PublicKey),
		"initializer": base58.Encode(parsed.Initializer.PublicKey),
		"amount":      amount,
	})

	if err := Initialize(programID, parsed, ledger, amount); err != nil {
		log.WithError(err).Debug("escrow not initialized")
		return err
	}

	log.Trace("escrow initialized")
	return nil
}

func (p *Processor) exchange(programID ed25519.PublicKey, accounts []*runtime.AccountInfo, ledger TokenLedger, amount uint64) error {
	parsed, err := ParseExchangeAccounts(accounts)
	if err != nil {
		return err
	}

	log := p.log.WithFields(logrus.Fields{
		"method":   "exchange",
		"escrow":   base58.Encode(parsed.Escrow.PublicKey),
		"acceptor": base58.Encode(parsed.Acceptor.PublicKey),
		"amount":   amount,
	})

	if err := Exchange(programID, parsed, ledger, amount); err != nil {
		log.WithError(err).Debug("exchange rejected")
		return err
	}

	log.Trace("escrow exchanged")
	return nil
}
