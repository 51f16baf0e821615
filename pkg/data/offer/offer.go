package offer

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/pointer"
)

// MaxAmount is the largest token amount an offer can record. Amounts are u64
// on chain but stored as signed 64-bit integers.
const MaxAmount = math.MaxInt64

type State uint8

const (
	StateUnknown State = iota
	StateInitialized
	StateExchanged
)

// Record is an off-chain index entry for an escrow, so acceptors can discover
// open offers without scanning program accounts.
type Record struct {
	Id uint64

	Escrow      string
	Initializer string

	TempTokenAccount    string
	ReceiveTokenAccount string

	DepositMint   string
	DepositAmount uint64

	ReceiveMint    string
	ExpectedAmount uint64

	InitializeSignature string

	Acceptor          *string
	ExchangeSignature *string

	State State

	Version uint64

	CreatedAt time.Time
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Escrow:      r.Escrow,
		Initializer: r.Initializer,

		TempTokenAccount:    r.TempTokenAccount,
		ReceiveTokenAccount: r.ReceiveTokenAccount,

		DepositMint:   r.DepositMint,
		DepositAmount: r.DepositAmount,

		ReceiveMint:    r.ReceiveMint,
		ExpectedAmount: r.ExpectedAmount,

		InitializeSignature: r.InitializeSignature,

		Acceptor:          pointer.Copy(r.Acceptor),
		ExchangeSignature: pointer.Copy(r.ExchangeSignature),

		State: r.State,

		Version: r.Version,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Escrow = r.Escrow
	dst.Initializer = r.Initializer

	dst.TempTokenAccount = r.TempTokenAccount
	dst.ReceiveTokenAccount = r.ReceiveTokenAccount

	dst.DepositMint = r.DepositMint
	dst.DepositAmount = r.DepositAmount

	dst.ReceiveMint = r.ReceiveMint
	dst.ExpectedAmount = r.ExpectedAmount

	dst.InitializeSignature = r.InitializeSignature

	dst.Acceptor = pointer.Copy(r.Acceptor)
	dst.ExchangeSignature = pointer.Copy(r.ExchangeSignature)

	dst.State = r.State

	dst.Version = r.Version

	dst.CreatedAt = r.CreatedAt
}

func (r *Record) Validate() error {
	if len(r.Escrow) == 0 {
		return errors.New("escrow is required")
	}

	if len(r.Initializer) == 0 {
		return errors.New("initializer is required")
	}

	if len(r.TempTokenAccount) == 0 {
		return errors.New("temp token account is required")
	}

	if len(r.ReceiveTokenAccount) == 0 {
		return errors.New("receive token account is required")
	}

	if len(r.DepositMint) == 0 {
		return errors.New("deposit mint is required")
	}

	if r.DepositAmount == 0 {
		return errors.New("deposit amount is required")
	}
	if r.DepositAmount > MaxAmount {
		return errors.New("deposit amount is out of range")
	}

	if len(r.ReceiveMint) == 0 {
		return errors.New("receive mint is required")
	}

	if r.ExpectedAmount == 0 {
		return errors.New("expected amount is required")
	}
	if r.ExpectedAmount > MaxAmount {
		return errors.New("expected amount is out of range")
	}

	if len(r.InitializeSignature) == 0 {
		return errors.New("initialize signature is required")
	}

	switch r.State {
	case StateInitialized:
		if r.Acceptor != nil || r.ExchangeSignature != nil {
			return errors.New("open offer cannot have an acceptor")
		}
	case StateExchanged:
		if r.Acceptor == nil || len(*r.Acceptor) == 0 {
			return errors.New("acceptor is required")
		}
		if r.ExchangeSignature == nil || len(*r.ExchangeSignature) == 0 {
			return errors.New("exchange signature is required")
		}
	default:
		return errors.Errorf("invalid state: %d", r.State)
	}

	return nil
}

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateExchanged:
		return "exchanged"
	}
	return "unknown"
}
