package escrow

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

// memoryLedger applies token operations directly to account data, checking
// that the authority owns the account and either signed or is derivable
// from the provided seeds under programID.
type memoryLedger struct {
	programID ed25519.PublicKey
	calls     []string
}

func (l *memoryLedger) Transfer(source, destination, authority *runtime.AccountInfo, amount uint64, signerSeeds ...[][]byte) error {
	l.calls = append(l.calls, "Transfer")

	src, err := unpackTokenAccount(source)
	if err != nil {
		return err
	}
	dst, err := unpackTokenAccount(destination)
	if err != nil {
		return err
	}
	if err := l.authorize(src.Owner, authority, signerSeeds); err != nil {
		return err
	}
	if src.Amount < amount {
		return token.ErrorInsufficientFunds
	}

	src.Amount -= amount
	dst.Amount += amount
	copy(source.Data, src.Marshal())
	copy(destination.Data, dst.Marshal())
	return nil
}

func (l *memoryLedger) SetAuthority(account, currentAuthority *runtime.AccountInfo, newAuthority ed25519.PublicKey, signerSeeds ...[][]byte) error {
	l.calls = append(l.calls, "SetAuthority")

	tokenAccount, err := unpackTokenAccount(account)
	if err != nil {
		return err
	}
	if err := l.authorize(tokenAccount.Owner, currentAuthority, signerSeeds); err != nil {
		return err
	}

	tokenAccount.Owner = newAuthority
	copy(account.Data, tokenAccount.Marshal())
	return nil
}

func (l *memoryLedger) CloseAccount(account, destination, authority *runtime.AccountInfo, signerSeeds ...[][]byte) error {
	l.calls = append(l.calls, "CloseAccount")

	tokenAccount, err := unpackTokenAccount(account)
	if err != nil {
		return err
	}
	if err := l.authorize(tokenAccount.Owner, authority, signerSeeds); err != nil {
		return err
	}
	if tokenAccount.Amount != 0 {
		return token.ErrorNonNativeHasBalance
	}

	destination.Lamports += account.Lamports
	account.Lamports = 0
	account.Data = make([]byte, len(account.Data))
	return nil
}

func (l *memoryLedger) GetAccount(account *runtime.AccountInfo) (*token.Account, error) {
	return unpackTokenAccount(account)
}

func (l *memoryLedger) GetBalance(account *runtime.AccountInfo) (uint64, error) {
	tokenAccount, err := unpackTokenAccount(account)
	if err != nil {
		return 0, err
	}
	return tokenAccount.Amount, nil
}

func (l *memoryLedger) authorize(owner ed25519.PublicKey, authority *runtime.AccountInfo, signerSeeds [][][]byte) error {
	if !bytes.Equal(owner, authority.PublicKey) {
		return token.ErrorOwnerMismatch
	}
	if authority.IsSigner {
		return nil
	}
	for _, seeds := range signerSeeds {
		pda, err := solana.CreateProgramAddress(l.programID, seeds...)
		if err == nil && bytes.Equal(pda, authority.PublicKey) {
			return nil
		}
	}
	return solana.InstructionErrorMissingRequiredSignature
}

// swapFixture holds the accounts of a single X-for-Y swap, with the escrow
// already allocated but not initialized.
type swapFixture struct {
	programID ed25519.PublicKey
	authority ed25519.PublicKey
	rent      runtime.Rent

	mintX, mintY ed25519.PublicKey

	initializer        *runtime.AccountInfo
	temp               *runtime.AccountInfo
	initializerReceive *runtime.AccountInfo
	escrow             *runtime.AccountInfo
	tokenProgram       *runtime.AccountInfo

	acceptor       *runtime.AccountInfo
	acceptorDebit  *runtime.AccountInfo
	acceptorCredit *runtime.AccountInfo
	authorityInfo  *runtime.AccountInfo
}

func newSwapFixture(t *testing.T, deposit, acceptorBalance uint64) *swapFixture {
	rent := runtime.DefaultRent()
	authority, _, err := escrow_program.GetAuthorityAddress(nil)
	require.NoError(t, err)

	keys := testutil.GenerateSolanaKeys(t, 9)
	f := &swapFixture{
		programID: escrow_program.PROGRAM_ID,
		authority: authority,
		rent:      rent,
		mintX:     keys[0],
		mintY:     keys[1],
	}

	f.initializer = systemAccountInfo(keys[2], true, 1_000_000_000)
	f.acceptor = systemAccountInfo(keys[3], true, 1_000_000_000)

	f.temp = tokenAccountInfo(keys[4], rent, f.mintX, f.initializer.PublicKey, deposit)
	f.initializerReceive = tokenAccountInfo(keys[5], rent, f.mintY, f.initializer.PublicKey, 0)
	f.acceptorDebit = tokenAccountInfo(keys[6], rent, f.mintY, f.acceptor.PublicKey, acceptorBalance)
	f.acceptorCredit = tokenAccountInfo(keys[7], rent, f.mintX, f.acceptor.PublicKey, 0)
	f.initializerReceive.IsWritable = false

	f.escrow = &runtime.AccountInfo{
		PublicKey:  keys[8],
		IsWritable: true,
		Account:    runtime.NewAccount(f.programID, rent.MinimumBalance(escrow_program.EscrowAccountSize), escrow_program.EscrowAccountSize),
	}

	f.tokenProgram = &runtime.AccountInfo{
		PublicKey: token.ProgramKey,
		Account:   &runtime.Account{Owner: system.SystemAccount, Executable: true},
	}
	f.authorityInfo = &runtime.AccountInfo{
		PublicKey: authority,
		Account:   runtime.NewAccount(system.SystemAccount, 0, 0),
	}

	return f
}

func (f *swapFixture) initializeAccounts() *InitializeAccounts {
	return &InitializeAccounts{
		Initializer:  f.initializer,
		TempToken:    f.temp,
		ReceiveToken: f.initializerReceive,
		Escrow:       f.escrow,
		TokenProgram: f.tokenProgram,
		Rent:         f.rent,
	}
}

func (f *swapFixture) exchangeAccounts() *ExchangeAccounts {
	receive := *f.initializerReceive
	receive.IsWritable = true

	return &ExchangeAccounts{
		Acceptor:           f.acceptor,
		AcceptorDebit:      f.acceptorDebit,
		AcceptorCredit:     f.acceptorCredit,
		Custody:            f.temp,
		Initializer:        f.initializer,
		InitializerReceive: &receive,
		Escrow:             f.escrow,
		TokenProgram:       f.tokenProgram,
		Authority:          f.authorityInfo,
	}
}

func (f *swapFixture) record(t *testing.T) *escrow_program.EscrowAccount {
	var record escrow_program.EscrowAccount
	require.NoError(t, record.Unmarshal(f.escrow.Data))
	return &record
}

func systemAccountInfo(key ed25519.PublicKey, signer bool, lamports uint64) *runtime.AccountInfo {
	return &runtime.AccountInfo{
		PublicKey:  key,
		IsSigner:   signer,
		IsWritable: true,
		Account:    runtime.NewAccount(system.SystemAccount, lamports, 0),
	}
}

func tokenAccountInfo(key ed25519.PublicKey, rent runtime.Rent, mint, owner ed25519.PublicKey, amount uint64) *runtime.AccountInfo {
	state := token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.AccountStateInitialized,
	}

	return &runtime.AccountInfo{
		PublicKey:  key,
		IsWritable: true,
		Account: &runtime.Account{
			Owner:    token.ProgramKey,
			Lamports: rent.MinimumBalance(token.AccountSize),
			Data:     state.Marshal(),
		},
	}
}

func tokenBalance(t *testing.T, info *runtime.AccountInfo) uint64 {
	account, err := unpackTokenAccount(info)
	require.NoError(t, err)
	return account.Amount
}
