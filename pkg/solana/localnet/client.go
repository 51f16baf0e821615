package localnet

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/token"
)

var _ solana.Client = (*Bank)(nil)

// Every processed transaction is rooted immediately, so commitment levels
// are accepted but have no effect on reads.

func (b *Bank) GetAccountInfo(key ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	account, ok := b.GetAccount(key)
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}

	return solana.AccountInfo{
		Data:       account.Data,
		Owner:      account.Owner,
		Lamports:   account.Lamports,
		Executable: account.Executable,
	}, nil
}

func (b *Bank) GetBalance(key ed25519.PublicKey) (uint64, error) {
	account, ok := b.GetAccount(key)
	if !ok {
		return 0, nil
	}
	return account.Lamports, nil
}

func (b *Bank) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	return b.rt.Rent().MinimumBalance(size), nil
}

func (b *Bank) GetLatestBlockhash() (solana.Blockhash, error) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	return b.blockhashes[len(b.blockhashes)-1], nil
}

func (b *Bank) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	statuses, err := b.GetSignatureStatuses([]solana.Signature{sig})
	if err != nil {
		return nil, err
	}
	if statuses[0] == nil {
		return nil, solana.ErrSignatureNotFound
	}
	return statuses[0], nil
}

func (b *Bank) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		status, ok := b.statuses[sig]
		if !ok {
			continue
		}

		cloned := *status
		statuses[i] = &cloned
	}
	return statuses, nil
}

func (b *Bank) GetSlot(_ solana.Commitment) (uint64, error) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	return b.slot, nil
}

func (b *Bank) GetTokenAccountBalance(key ed25519.PublicKey) (uint64, uint64, error) {
	account, ok := b.GetAccount(key)
	if !ok || !account.IsOwnedBy(token.ProgramKey) {
		return 0, 0, solana.ErrNoBalance
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(account.Data) || !tokenAccount.IsInitialized() {
		return 0, 0, solana.ErrNoBalance
	}

	slot, _ := b.GetSlot(solana.CommitmentFinalized)
	return tokenAccount.Amount, slot, nil
}
