package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

func TestExchange_HappyPath(t *testing.T) {
	f := newSwapFixture(t, 50, 30)
	ledger := &memoryLedger{programID: f.programID}
	require.NoError(t, Initialize(f.programID, f.initializeAccounts(), ledger, 30))

	initializerLamports := f.initializer.Lamports
	refund := f.escrow.Lamports + f.temp.Lamports

	accounts := f.exchangeAccounts()
	require.NoError(t, Exchange(f.programID, accounts, ledger, 30))

	assert.Equal(t, []string{"SetAuthority", "Transfer", "Transfer", "CloseAccount"}, ledger.calls)

	assert.EqualValues(t, 0, tokenBalance(t, f.acceptorDebit))
	assert.EqualValues(t, 50, tokenBalance(t, f.acceptorCredit))
	assert.EqualValues(t, 30, tokenBalance(t, accounts.InitializerReceive))

	// Custody and escrow rent are refunded to the initializer
	assert.Equal(t, initializerLamports+refund, f.initializer.Lamports)
	assert.EqualValues(t, 0, f.temp.Lamports)
	assert.EqualValues(t, 0, f.escrow.Lamports)
	assert.Equal(t, make([]byte, escrow_program.EscrowAccountSize), f.escrow.Data)

	// The record is gone, so the escrow can't be exchanged again
	err := Exchange(f.programID, f.exchangeAccounts(), ledger, 30)
	assert.Equal(t, escrow_program.ErrNotInitialized, err)

	f.escrow.Data = nil
	err = Exchange(f.programID, f.exchangeAccounts(), ledger, 30)
	assert.Equal(t, escrow_program.ErrAccountNotFound, err)
}

func TestExchange_Errors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		amount   uint64
		mutate   func(f *swapFixture, accounts *ExchangeAccounts)
		expected error
	}{
		{
			name:   "missing signature",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Acceptor.IsSigner = false
			},
			expected: escrow_program.ErrMissingSignature,
		},
		{
			name:   "escrow doesn't exist",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Escrow.Account = runtime.NewAccount(system.SystemAccount, 0, 0)
			},
			expected: escrow_program.ErrAccountNotFound,
		},
		{
			name:   "escrow not owned by program",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Escrow.Owner = system.SystemAccount
			},
			expected: escrow_program.ErrIncorrectProgramID,
		},
		{
			name:   "escrow not initialized",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Escrow.Data = make([]byte, escrow_program.EscrowAccountSize)
			},
			expected: escrow_program.ErrNotInitialized,
		},
		{
			name:     "amount too low",
			amount:   29,
			mutate:   func(f *swapFixture, accounts *ExchangeAccounts) {},
			expected: escrow_program.ErrExpectedAmountMismatch,
		},
		{
			name:     "amount too high",
			amount:   31,
			mutate:   func(f *swapFixture, accounts *ExchangeAccounts) {},
			expected: escrow_program.ErrExpectedAmountMismatch,
		},
		{
			name:   "wrong authority",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Authority = f.acceptor
			},
			expected: escrow_program.ErrInvalidAuthority,
		},
		{
			name:   "custody doesn't match record",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Custody = f.acceptorCredit
			},
			expected: escrow_program.ErrInvalidAccountData,
		},
		{
			name:   "initializer doesn't match record",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Initializer = f.acceptor
			},
			expected: escrow_program.ErrInvalidAccountData,
		},
		{
			name:   "receive account doesn't match record",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.InitializerReceive = f.acceptorCredit
			},
			expected: escrow_program.ErrInvalidAccountData,
		},
		{
			name:   "wrong token program",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.TokenProgram = f.authorityInfo
			},
			expected: escrow_program.ErrIncorrectProgramID,
		},
		{
			name:   "empty custody",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Custody.Account = tokenAccountInfo(accounts.Custody.PublicKey, f.rent, f.mintX, f.authority, 0).Account
			},
			expected: escrow_program.ErrInsufficientFunds,
		},
		{
			name:   "custody not held by authority",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Custody.Account = tokenAccountInfo(accounts.Custody.PublicKey, f.rent, f.mintX, f.initializer.PublicKey, 50).Account
			},
			expected: escrow_program.ErrInvalidAuthority,
		},
		{
			name:   "acceptor pays with the wrong mint",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.AcceptorDebit.Account = tokenAccountInfo(accounts.AcceptorDebit.PublicKey, f.rent, f.mintX, f.acceptor.PublicKey, 30).Account
			},
			expected: escrow_program.ErrInvalidAccountData,
		},
		{
			name:   "acceptor receives into the wrong mint",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.AcceptorCredit.Account = tokenAccountInfo(accounts.AcceptorCredit.PublicKey, f.rent, f.mintY, f.acceptor.PublicKey, 0).Account
			},
			expected: escrow_program.ErrInvalidAccountData,
		},
		{
			name:   "acceptor can't afford",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.AcceptorDebit.Account = tokenAccountInfo(accounts.AcceptorDebit.PublicKey, f.rent, f.mintY, f.acceptor.PublicKey, 29).Account
			},
			expected: escrow_program.ErrInsufficientFunds,
		},
		{
			name:   "refund overflows",
			amount: 30,
			mutate: func(f *swapFixture, accounts *ExchangeAccounts) {
				accounts.Initializer.Lamports = ^uint64(0)
			},
			expected: escrow_program.ErrAmountOverflow,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newSwapFixture(t, 50, 30)
			ledger := &memoryLedger{programID: f.programID}
			require.NoError(t, Initialize(f.programID, f.initializeAccounts(), ledger, 30))
			ledger.calls = nil

			accounts := f.exchangeAccounts()
			tc.mutate(f, accounts)

			before := snapshot(accounts)

			err := Exchange(f.programID, accounts, ledger, tc.amount)
			assert.Equal(t, tc.expected, err)

			// A rejected exchange has no effect on any account
			assert.Equal(t, before, snapshot(accounts))
			assert.Empty(t, ledger.calls)
		})
	}
}

func snapshot(accounts *ExchangeAccounts) []*runtime.Account {
	var snapshot []*runtime.Account
	for _, info := range []*runtime.AccountInfo{
		accounts.Acceptor,
		accounts.AcceptorDebit,
		accounts.AcceptorCredit,
		accounts.Custody,
		accounts.Initializer,
		accounts.InitializerReceive,
		accounts.Escrow,
		accounts.Authority,
	} {
		snapshot = append(snapshot, info.Clone())
	}
	return snapshot
}
