package escrow

import (
	"bytes"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

// InitializeAccounts are the accounts referenced by InitEscrow.
type InitializeAccounts struct {
	Initializer  *runtime.AccountInfo
	TempToken    *runtime.AccountInfo
	ReceiveToken *runtime.AccountInfo
	Escrow       *runtime.AccountInfo
	TokenProgram *runtime.AccountInfo
	RentSysvar   *runtime.AccountInfo // nil unless the legacy layout is used
	Rent         runtime.Rent
}

// ParseInitializeAccounts maps positional accounts onto InitializeAccounts.
//
// Both the current layout (token program at index 4) and the legacy layout
// (rent sysvar at index 4, token program at index 5) are accepted. When the
// rent sysvar is supplied, rent is read from it, otherwise the provided rent
// is used.
func ParseInitializeAccounts(accounts []*runtime.AccountInfo, rent runtime.Rent) (*InitializeAccounts, error) {
	if len(accounts) < 5 {
		return nil, escrow_program.ErrNotEnoughAccountKeys
	}

	parsed := &InitializeAccounts{
		Initializer:  accounts[0],
		TempToken:    accounts[1],
		ReceiveToken: accounts[2],
		Escrow:       accounts[3],
		TokenProgram: accounts[4],
		Rent:         rent,
	}

	if bytes.Equal(accounts[4].PublicKey, system.RentSysVar) {
		if len(accounts) < 6 {
			return nil, escrow_program.ErrNotEnoughAccountKeys
		}

		sysvarRent, err := system.GetRent(accounts[4])
		if err != nil {
			return nil, escrow_program.ErrInvalidAccountData
		}

		parsed.RentSysvar = accounts[4]
		parsed.TokenProgram = accounts[5]
		parsed.Rent = sysvarRent
	}

	return parsed, nil
}

// ExchangeAccounts are the accounts referenced by Exchange.
type ExchangeAccounts struct {
	Acceptor           *runtime.AccountInfo
	AcceptorDebit      *runtime.AccountInfo
	AcceptorCredit     *runtime.AccountInfo
	Custody            *runtime.AccountInfo
	Initializer        *runtime.AccountInfo
	InitializerReceive *runtime.AccountInfo
	Escrow             *runtime.AccountInfo
	TokenProgram       *runtime.AccountInfo
	Authority          *runtime.AccountInfo
}

// ParseExchangeAccounts maps positional accounts onto ExchangeAccounts.
func ParseExchangeAccounts(accounts []*runtime.AccountInfo) (*ExchangeAccounts, error) {
	if len(accounts) < 9 {
		return nil, escrow_program.ErrNotEnoughAccountKeys
	}

	return &ExchangeAccounts{
		Acceptor:           accounts[0],
		AcceptorDebit:      accounts[1],
		AcceptorCredit:     accounts[2],
		Custody:            accounts[3],
		Initializer:        accounts[4],
		InitializerReceive: accounts[5],
		Escrow:             accounts[6],
		TokenProgram:       accounts[7],
		Authority:          accounts[8],
	}, nil
}
