package localnet

import (
	"bytes"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

const (
	transactionProcessedEventName = "LocalnetTransactionProcessed"
	processTransactionMetricName  = "Localnet.ProcessTransaction"
)

// SubmitTransaction implements solana.Client.SubmitTransaction.
//
// Transactions are processed synchronously. A transaction that fails
// validation is rejected without any effect. A transaction that fails during
// execution still pays its fee, is assigned a slot and has its error recorded
// in its signature status. In both cases the *solana.TransactionError is
// returned, as a preflight check against a cluster would.
func (b *Bank) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	start := time.Now()

	var sig solana.Signature
	if len(txn.Signatures) > 0 {
		sig = txn.Signatures[0]
	}

	log := b.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.String(),
	})

	if err := b.sanitize(txn); err != nil {
		log.WithError(err).Debug("transaction rejected")
		return sig, err
	}

	if err := b.reserve(sig); err != nil {
		log.WithError(err).Debug("transaction rejected")
		return sig, err
	}
	defer b.release(sig)

	msg := txn.Message
	writable := make([][]byte, 0, len(msg.Accounts))
	readonly := make([][]byte, 0, len(msg.Accounts))
	for i, key := range msg.Accounts {
		if msg.IsWritable(i) {
			writable = append(writable, key)
		} else {
			readonly = append(readonly, key)
		}
	}

	unlock := b.locks.LockAll(writable, readonly)
	defer unlock()

	loaded, err := b.load(msg, uint64(len(txn.Signatures))*b.conf.lamportsPerSignature.Get(b.ctx))
	if err != nil {
		log.WithError(err).Debug("transaction rejected")
		return sig, err
	}

	feePaid := loaded[0].Clone()
	result, execErr := b.rt.Execute(msg, loaded)

	b.accountsMu.Lock()
	if execErr == nil {
		for i, key := range msg.Accounts {
			if msg.IsWritable(i) {
				b.storeAccount(key, loaded[i])
			}
		}
	} else {
		b.storeAccount(msg.Accounts[0], feePaid)
	}
	b.accountsMu.Unlock()

	status := &solana.SignatureStatus{
		ConfirmationStatus: "finalized",
	}
	if execErr != nil {
		txErr, ok := execErr.(*solana.TransactionError)
		if !ok {
			txErr = solana.NewTransactionError(solana.TransactionErrorInternal)
		}
		status.ErrorResult = txErr
		execErr = txErr
	}

	b.stateMu.Lock()
	status.Slot = b.advance(sig)
	b.statuses[sig] = status
	b.logs[sig] = result.Logs
	b.stateMu.Unlock()

	metrics.RecordDuration(b.ctx, processTransactionMetricName, time.Since(start))
	metrics.RecordEvent(b.ctx, transactionProcessedEventName, map[string]interface{}{
		"signature":    sig.String(),
		"slot":         status.Slot,
		"instructions": len(msg.Instructions),
		"success":      execErr == nil,
	})

	if execErr != nil {
		log.WithError(execErr).WithField("logs", result.Logs).Debug("transaction failed")
		return sig, execErr
	}

	log.WithField("slot", status.Slot).Trace("transaction processed")
	return sig, nil
}

func (b *Bank) sanitize(txn solana.Transaction) error {
	msg := txn.Message
	header := msg.Header

	switch {
	case header.NumSignatures == 0, len(txn.Signatures) == 0:
		return solana.NewTransactionError(solana.TransactionErrorMissingSignatureForFee)
	case int(header.NumSignatures) > len(msg.Accounts),
		header.NumReadonlySigned >= header.NumSignatures,
		int(header.NumSignatures)+int(header.NumReadOnly) > len(msg.Accounts),
		len(txn.Marshal()) > solana.MaxTransactionSize:
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	case msg.HasDuplicateAccounts():
		return solana.NewTransactionError(solana.TransactionErrorAccountLoadedTwice)
	}

	for _, c := range msg.Instructions {
		if int(c.ProgramIndex) >= len(msg.Accounts) || c.ProgramIndex == 0 {
			return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
		}
		for _, index := range c.Accounts {
			if int(index) >= len(msg.Accounts) {
				return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
			}
		}
	}

	if err := txn.VerifySignatures(); err != nil {
		return solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	if !b.isRecentBlockhash(msg.RecentBlockhash) {
		return solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	return nil
}

func (b *Bank) reserve(sig solana.Signature) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if _, ok := b.statuses[sig]; ok {
		return solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}
	if _, ok := b.inflight[sig]; ok {
		return solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	b.inflight[sig] = struct{}{}
	return nil
}

func (b *Bank) release(sig solana.Signature) {
	b.stateMu.Lock()
	delete(b.inflight, sig)
	b.stateMu.Unlock()
}

// load copies every account referenced by the message and charges the fee to
// the payer's copy. Addresses without an account are loaded as empty system
// accounts.
func (b *Bank) load(msg solana.Message, fee uint64) ([]*runtime.Account, error) {
	b.accountsMu.RLock()
	defer b.accountsMu.RUnlock()

	payer, ok := b.accounts[string(msg.Accounts[0])]
	if !ok {
		return nil, solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	}
	if !bytes.Equal(payer.Owner, system.ProgramKey[:]) || len(payer.Data) > 0 {
		return nil, solana.NewTransactionError(solana.TransactionErrorInvalidAccountForFee)
	}
	if payer.Lamports < fee {
		return nil, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	loaded := make([]*runtime.Account, len(msg.Accounts))
	for i, key := range msg.Accounts {
		account, ok := b.accounts[string(key)]
		if ok {
			loaded[i] = account.Clone()
		} else {
			loaded[i] = runtime.NewAccount(system.ProgramKey[:], 0, 0)
		}
	}
	loaded[0].Lamports -= fee

	return loaded, nil
}
