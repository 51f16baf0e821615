package token

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L39
const MintSize = 82

// Account is the SPL token account layout. Optional keys are nil when unset.
type Account struct {
	Mint   ed25519.PublicKey
	Owner  ed25519.PublicKey
	Amount uint64

	// Delegate may move up to DelegatedAmount on behalf of Owner.
	Delegate ed25519.PublicKey
	State    AccountState

	// Non-nil for wrapped SOL, holding the rent-exempt reserve.
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	e := binary.NewEncoder(AccountSize)
	e.Key(a.Mint)
	e.Key(a.Owner)
	e.Uint64(a.Amount)
	e.OptionalKey(a.Delegate)
	e.Uint8(byte(a.State))
	e.OptionalUint64(a.IsNative)
	e.Uint64(a.DelegatedAmount)
	e.OptionalKey(a.CloseAuthority)
	return e.Bytes()
}

func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	d := binary.NewDecoder(b)
	a.Mint = d.Key()
	a.Owner = d.Key()
	a.Amount = d.Uint64()
	a.Delegate = d.OptionalKey()
	a.State = AccountState(d.Uint8())
	a.IsNative = d.OptionalUint64()
	a.DelegatedAmount = d.Uint64()
	a.CloseAuthority = d.OptionalKey()
	return true
}

// IsInitialized returns whether the account has been initialized, including
// frozen accounts.
func (a *Account) IsInitialized() bool {
	return a.State != AccountStateUninitialized
}

type Mint struct {
	// Optional authority used to mint new tokens. If no mint authority is
	// present, then the mint has a fixed supply and no further tokens may be
	// minted.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	e := binary.NewEncoder(MintSize)
	e.OptionalKey(m.MintAuthority)
	e.Uint64(m.Supply)
	e.Uint8(m.Decimals)
	e.Bool(m.IsInitialized)
	e.OptionalKey(m.FreezeAuthority)
	return e.Bytes()
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	d := binary.NewDecoder(b)
	m.MintAuthority = d.OptionalKey()
	m.Supply = d.Uint64()
	m.Decimals = d.Uint8()
	m.IsInitialized = d.Uint8() == 1
	m.FreezeAuthority = d.OptionalKey()
	return true
}
