package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

const (
	// A slot is ~400ms. Signature statuses are polled at twice that rate
	// for up to ~32 slots.
	PollRate           = 200 * time.Millisecond
	sigStatusPollLimit = 64

	blockhashCacheTTL = 2 * time.Second

	rpcRateLimitedCode   = 429
	rpcNodeUnhealthyCode = -32005
	rpcInvalidParamCode  = -32602
)

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

// Commitment is the level of finality requested from the cluster. It
// serializes as the {"commitment": ...} config object the RPC expects.
type Commitment struct {
	Commitment string `json:"commitment"`
}

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

func CommitmentFromString(value string) (Commitment, error) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		if c.Commitment == value {
			return c, nil
		}
	}
	return Commitment{}, errors.Errorf("unknown commitment: %s", value)
}

var (
	ErrNoAccountInfo     = errors.New("no account info")
	ErrSignatureNotFound = errors.New("signature not found")
	ErrNoBalance         = errors.New("no balance")

	errRateLimited             = errors.New("rate limited")
	errServiceError            = errors.New("service error")
	errConfirmationsNotReached = errors.New("confirmations not reached")
)

// AccountInfo is a raw account as stored by the cluster.
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Nil once the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	switch {
	case s.Finalized():
		return true
	case s.ConfirmationStatus == confirmationStatusConfirmed:
		return true
	default:
		return *s.Confirmations > 0
	}
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Reached reports whether the status satisfies commitment.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	switch commitment {
	case CommitmentConfirmed:
		return s.Confirmed()
	case CommitmentFinalized:
		return s.Finalized()
	default:
		return true
	}
}

// Client is the subset of the Solana JSON RPC API used to run escrows. It is
// implemented over HTTP by New and in process by the localnet package.
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetLatestBlockhash() (Blockhash, error)
	GetSignatureStatus(Signature, Commitment) (*SignatureStatus, error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	GetSlot(Commitment) (uint64, error)
	GetTokenAccountBalance(ed25519.PublicKey) (uint64, uint64, error)
	RequestAirdrop(ed25519.PublicKey, uint64, Commitment) (Signature, error)
	SubmitTransaction(Transaction, Commitment) (Signature, error)
}

// withContext is the {"context": ..., "value": ...} envelope most RPC
// methods respond with.
type withContext[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

type client struct {
	log     *logrus.Entry
	rpc     jsonrpc.RPCClient
	retrier retry.Retrier

	blockMu       sync.RWMutex
	blockhash     Blockhash
	blockhashTime time.Time
}

// New returns a Client for the RPC endpoint. Rate limiting and node health
// errors are retried with jittered exponential backoff.
func New(endpoint string) Client {
	return &client{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":     "solana/client",
			"endpoint": endpoint,
		}),
		rpc: jsonrpc.NewClient(endpoint),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		err := c.rpc.CallFor(out, method, params...)
		if err == nil {
			return nil
		}

		rpcErr, ok := err.(*jsonrpc.RPCError)
		switch {
		case !ok:
			return err
		case rpcErr.Code == rpcRateLimitedCode:
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		case rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode:
			return errServiceError
		default:
			return err
		}
	})
	return err
}

func isInvalidParam(err error) bool {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	return ok && rpcErr.Code == rpcInvalidParamCode
}

func (c *client) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	var lamports uint64
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", size); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption")
	}
	return lamports, nil
}

func (c *client) GetSlot(commitment Commitment) (uint64, error) {
	// The commitment has to be sent as a positional array element.
	var slot uint64
	if err := c.call(&slot, "getSlot", []interface{}{commitment}); err != nil {
		return 0, errors.Wrap(err, "getSlot")
	}
	return slot, nil
}

// GetLatestBlockhash serves a cached blockhash for a jittered couple of
// seconds so concurrent submitters don't each hit the node.
func (c *client) GetLatestBlockhash() (Blockhash, error) {
	ttl := time.Duration(float64(blockhashCacheTTL) * (0.8 + 0.4*rand.Float64()))

	c.blockMu.RLock()
	cached, fetchedAt := c.blockhash, c.blockhashTime
	c.blockMu.RUnlock()
	if cached != (Blockhash{}) && time.Since(fetchedAt) < ttl {
		return cached, nil
	}

	var resp withContext[struct {
		Blockhash string `json:"blockhash"`
	}]
	if err := c.call(&resp, "getLatestBlockhash"); err != nil {
		return Blockhash{}, errors.Wrap(err, "getLatestBlockhash")
	}

	raw, err := base58.Decode(resp.Value.Blockhash)
	if err != nil || len(raw) != len(Blockhash{}) {
		return Blockhash{}, errors.Errorf("invalid blockhash in response: %q", resp.Value.Blockhash)
	}

	var hash Blockhash
	copy(hash[:], raw)

	c.blockMu.Lock()
	c.blockhash, c.blockhashTime = hash, time.Now()
	c.blockMu.Unlock()

	return hash, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	var resp withContext[uint64]
	if err := c.call(&resp, "getBalance", base58.Encode(account), CommitmentProcessed); err != nil {
		if isInvalidParam(err) {
			return 0, ErrNoBalance
		}
		return 0, errors.Wrap(err, "getBalance")
	}
	return resp.Value, nil
}

// GetTokenAccountBalance returns the finalized balance of a token account in
// base units, along with the slot it was read at.
func (c *client) GetTokenAccountBalance(account ed25519.PublicKey) (uint64, uint64, error) {
	var resp withContext[struct {
		Amount string `json:"amount"`
	}]
	if err := c.call(&resp, "getTokenAccountBalance", base58.Encode(account), CommitmentFinalized); err != nil {
		if isInvalidParam(err) {
			return 0, 0, ErrNoBalance
		}
		return 0, 0, errors.Wrap(err, "getTokenAccountBalance")
	}

	amount, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid token amount in response: %q", resp.Value.Amount)
	}
	return amount, resp.Context.Slot, nil
}

// SubmitTransaction sends txn without preflight. A transaction error reported
// by the node is returned as a *TransactionError.
func (c *client) SubmitTransaction(txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signatures[0]

	config := struct {
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		SkipPreflight:       true,
		PreflightCommitment: commitment.Commitment,
	}

	var ignored string
	err := c.call(&ignored, "sendTransaction", base58.Encode(txn.Marshal()), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrap(err, "sendTransaction")
	}

	txErr, parseErr := ParseRPCError(rpcErr)
	if parseErr != nil {
		return sig, err
	}
	if txErr == nil {
		return sig, nil
	}

	c.log.WithFields(logrus.Fields{
		"method":    "sendTransaction",
		"signature": sig.String(),
	}).WithError(txErr).Debug("transaction rejected")
	return sig, txErr
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	config := struct {
		Commitment
		Encoding string `json:"encoding"`
	}{
		Commitment: commitment,
		Encoding:   "base64",
	}

	var resp withContext[*struct {
		Lamports   uint64   `json:"lamports"`
		Owner      string   `json:"owner"`
		Data       []string `json:"data"`
		Executable bool     `json:"executable"`
	}]
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account), config); err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo")
	}
	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}

	owner, err := base58.Decode(resp.Value.Owner)
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid owner in response")
	}
	if len(resp.Value.Data) == 0 {
		return AccountInfo{}, errors.New("missing data in response")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid data in response")
	}

	return AccountInfo{
		Data:       data,
		Owner:      owner,
		Lamports:   resp.Value.Lamports,
		Executable: resp.Value.Executable,
	}, nil
}

func (c *client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var encoded string
	if err := c.call(&encoded, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, errors.Wrap(err, "requestAirdrop")
	}

	raw, err := base58.Decode(encoded)
	if err != nil || len(raw) != len(Signature{}) {
		return Signature{}, errors.Errorf("invalid signature in response: %q", encoded)
	}

	var sig Signature
	copy(sig[:], raw)
	return sig, nil
}

// GetSignatureStatus polls until the transaction reaches commitment, fails,
// or the poll limit runs out.
func (c *client) GetSignatureStatus(sig Signature, commitment Commitment) (*SignatureStatus, error) {
	var status *SignatureStatus
	_, err := retry.Retry(
		func() error {
			statuses, err := c.GetSignatureStatuses([]Signature{sig})
			if err != nil {
				return err
			}

			status = statuses[0]
			switch {
			case status == nil:
				return ErrSignatureNotFound
			case status.ErrorResult != nil, status.Reached(commitment):
				return nil
			default:
				return errConfirmationsNotReached
			}
		},
		retry.RetriableErrors(ErrSignatureNotFound, errConfirmationsNotReached),
		retry.Limit(sigStatusPollLimit),
		retry.Backoff(backoff.Constant(PollRate), PollRate),
	)
	return status, err
}

func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = sig.String()
	}

	config := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	var resp withContext[[]*struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *int            `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	}]
	if err := c.call(&resp, "getSignatureStatuses", encoded, config); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses")
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		status := &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		if len(v.Err) > 0 && string(v.Err) != "null" {
			var raw interface{}
			if err := json.Unmarshal(v.Err, &raw); err != nil {
				return nil, errors.Wrap(err, "invalid transaction error in response")
			}

			txErr, err := ParseTransactionError(raw)
			if err != nil {
				return nil, errors.Wrap(err, "invalid transaction error in response")
			}
			status.ErrorResult = txErr
		}

		statuses[i] = status
	}
	return statuses, nil
}
