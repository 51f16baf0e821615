package localnet

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

const (
	airdropLamportsMetricName = "Localnet.AirdropLamports"
)

var (
	ErrAirdropRateLimited   = errors.New("airdrop rate limited")
	ErrInvalidAirdropAmount = errors.New("invalid airdrop amount")
)

// RequestAirdrop funds the account from the faucet with a system transfer.
// Airdrops are rate limited per recipient.
func (b *Bank) RequestAirdrop(key ed25519.PublicKey, lamports uint64, commitment solana.Commitment) (solana.Signature, error) {
	log := b.log.WithFields(logrus.Fields{
		"method":   "RequestAirdrop",
		"account":  base58.Encode(key),
		"lamports": lamports,
	})

	if lamports == 0 || lamports > b.conf.maxAirdropLamports.Get(b.ctx) {
		return solana.Signature{}, ErrInvalidAirdropAmount
	}

	allowed, err := b.limiter.Allow(base58.Encode(key))
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to check airdrop rate limit")
	} else if !allowed {
		log.Debug("airdrop rate limited")
		return solana.Signature{}, ErrAirdropRateLimited
	}

	// Airdrops are serialized so consecutive requests for the same amount
	// never reuse a blockhash, which would yield identical signatures.
	b.faucetMu.Lock()
	defer b.faucetMu.Unlock()

	blockhash, err := b.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, err
	}

	txn := solana.NewTransaction(b.FaucetKey(), system.Transfer(b.FaucetKey(), key, lamports))
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(b.faucet); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign airdrop")
	}

	sig, err := b.SubmitTransaction(txn, commitment)
	if err != nil {
		log.WithError(err).Warn("airdrop failed")
		return sig, errors.Wrap(err, "failed to submit airdrop")
	}

	metrics.RecordCount(b.ctx, airdropLamportsMetricName, lamports)

	return sig, nil
}
