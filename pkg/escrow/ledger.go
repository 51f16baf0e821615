package escrow

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

var (
	// ErrNotTokenAccount indicates an account is not an initialized token
	// account.
	ErrNotTokenAccount = errors.New("not a token account")
)

// TokenLedger moves tokens between token accounts on behalf of the escrow
// program. Authority checks are the ledger's responsibility. Signer seeds
// let the program sign as one of its derived addresses.
type TokenLedger interface {
	Transfer(source, destination, authority *runtime.AccountInfo, amount uint64, signerSeeds ...[][]byte) error
	SetAuthority(account, currentAuthority *runtime.AccountInfo, newAuthority ed25519.PublicKey, signerSeeds ...[][]byte) error
	CloseAccount(account, destination, authority *runtime.AccountInfo, signerSeeds ...[][]byte) error

	// GetAccount returns the token account state, or ErrNotTokenAccount.
	GetAccount(account *runtime.AccountInfo) (*token.Account, error)

	// GetBalance returns the token balance, or ErrNotTokenAccount.
	GetBalance(account *runtime.AccountInfo) (uint64, error)
}

// cpiLedger invokes the token program for every operation.
type cpiLedger struct {
	ctx      runtime.InvokeContext
	accounts []*runtime.AccountInfo
}

// NewCPILedger returns a TokenLedger backed by cross-program invocations of
// the token program. The token program must be present in accounts.
func NewCPILedger(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo) TokenLedger {
	return &cpiLedger{
		ctx:      ctx,
		accounts: accounts,
	}
}

func (l *cpiLedger) Transfer(source, destination, authority *runtime.AccountInfo, amount uint64, signerSeeds ...[][]byte) error {
	ixn := token.Transfer(source.PublicKey, destination.PublicKey, authority.PublicKey, amount)
	return l.ctx.InvokeSigned(ixn, l.accounts, signerSeeds...)
}

func (l *cpiLedger) SetAuthority(account, currentAuthority *runtime.AccountInfo, newAuthority ed25519.PublicKey, signerSeeds ...[][]byte) error {
	ixn := token.SetAuthority(account.PublicKey, currentAuthority.PublicKey, newAuthority, token.AuthorityTypeAccountHolder)
	return l.ctx.InvokeSigned(ixn, l.accounts, signerSeeds...)
}

func (l *cpiLedger) CloseAccount(account, destination, authority *runtime.AccountInfo, signerSeeds ...[][]byte) error {
	ixn := token.CloseAccount(account.PublicKey, destination.PublicKey, authority.PublicKey)
	return l.ctx.InvokeSigned(ixn, l.accounts, signerSeeds...)
}

func (l *cpiLedger) GetAccount(account *runtime.AccountInfo) (*token.Account, error) {
	return unpackTokenAccount(account)
}

func (l *cpiLedger) GetBalance(account *runtime.AccountInfo) (uint64, error) {
	tokenAccount, err := unpackTokenAccount(account)
	if err != nil {
		return 0, err
	}
	return tokenAccount.Amount, nil
}

func unpackTokenAccount(info *runtime.AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, ErrNotTokenAccount
	}

	var account token.Account
	if !account.Unmarshal(info.Data) || !account.IsInitialized() {
		return nil, ErrNotTokenAccount
	}
	return &account, nil
}
