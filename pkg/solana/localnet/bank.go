package localnet

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/code-payments/code-escrow/pkg/metrics"
	"github.com/code-payments/code-escrow/pkg/metrics/noop"
	ratelimit "github.com/code-payments/code-escrow/pkg/rate"
	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/runtime"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	xsync "github.com/code-payments/code-escrow/pkg/sync"
)

const (
	LamportsPerSol = 1_000_000_000

	// MaxRecentBlockhashes is the number of blockhashes a transaction may
	// reference before it is considered expired.
	MaxRecentBlockhashes = 150
)

var (
	// NativeLoader owns the builtin program accounts
	NativeLoader = mustBase58Decode("NativeLoader1111111111111111111111111111111")

	// BPFLoader owns program accounts registered through RegisterProgram
	BPFLoader = mustBase58Decode("BPFLoader2111111111111111111111111111111111")
)

// Bank is a single node, in-process ledger. It executes transactions with
// the builtin runtime and implements solana.Client, so anything built against
// a cluster can run against it unmodified.
//
// Every committed transaction, successful or not, is processed in its own
// slot and produces a new blockhash.
type Bank struct {
	log  *logrus.Entry
	conf *conf
	ctx  context.Context

	rt      *runtime.Runtime
	locks   *xsync.StripedLock
	limiter ratelimit.Limiter

	faucetMu sync.Mutex
	faucet   ed25519.PrivateKey

	accountsMu sync.RWMutex
	accounts   map[string]*runtime.Account

	stateMu     sync.RWMutex
	slot        uint64
	blockhashes []solana.Blockhash
	statuses    map[solana.Signature]*solana.SignatureStatus
	logs        map[solana.Signature][]string
	inflight    map[solana.Signature]struct{}
}

// New returns a Bank with the system, token and associated token account
// programs deployed, along with a funded faucet.
func New(provider metrics.Provider, configProvider ConfigProvider) (*Bank, error) {
	if provider == nil {
		provider = noop.NewProvider()
	}

	ctx := metrics.NewProviderContext(context.Background(), provider)
	conf := configProvider()

	_, faucet, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate faucet key")
	}

	b := &Bank{
		log:      logrus.StandardLogger().WithField("type", "solana/localnet"),
		conf:     conf,
		ctx:      ctx,
		rt:       runtime.New(runtime.DefaultRent()),
		locks:    xsync.NewStripedLock(uint(conf.stripedLockParallelization.Get(ctx))),
		limiter:  ratelimit.NewLocalRateLimiter(rate.Limit(conf.airdropsPerSecond.Get(ctx))),
		faucet:   faucet,
		accounts: make(map[string]*runtime.Account),
		statuses: make(map[solana.Signature]*solana.SignatureStatus),
		logs:     make(map[solana.Signature][]string),
		inflight: make(map[solana.Signature]struct{}),
	}

	genesis := sha256.Sum256(faucet.Public().(ed25519.PublicKey))
	b.blockhashes = append(b.blockhashes, solana.Blockhash(genesis))

	b.registerProgram(system.ProgramKey[:], system.NewProcessor(), NativeLoader)
	b.registerProgram(token.ProgramKey, token.NewProcessor(), BPFLoader)
	b.registerProgram(token.AssociatedTokenAccountProgramKey, token.NewAssociatedProcessor(), BPFLoader)

	b.SetAccount(system.RentSysVar, system.NewRentSysVarAccount(b.rt.Rent()))
	b.SetAccount(b.FaucetKey(), runtime.NewAccount(system.ProgramKey[:], conf.faucetLamports.Get(ctx), 0))

	return b, nil
}

// RegisterProgram deploys a program at the provided address.
func (b *Bank) RegisterProgram(programID ed25519.PublicKey, program runtime.Program) {
	b.registerProgram(programID, program, BPFLoader)
}

func (b *Bank) registerProgram(programID ed25519.PublicKey, program runtime.Program, loader ed25519.PublicKey) {
	b.rt.Register(programID, program)

	account := runtime.NewAccount(loader, 1, 0)
	account.Executable = true
	b.SetAccount(programID, account)
}

// FaucetKey returns the address airdrops are funded from.
func (b *Bank) FaucetKey() ed25519.PublicKey {
	return b.faucet.Public().(ed25519.PublicKey)
}

// SetAccount overwrites the account stored at the provided address. Accounts
// without any lamports are removed.
func (b *Bank) SetAccount(key ed25519.PublicKey, account *runtime.Account) {
	b.accountsMu.Lock()
	defer b.accountsMu.Unlock()

	b.storeAccount(key, account.Clone())
}

// GetAccount returns a copy of the account stored at the provided address.
func (b *Bank) GetAccount(key ed25519.PublicKey) (*runtime.Account, bool) {
	b.accountsMu.RLock()
	defer b.accountsMu.RUnlock()

	account, ok := b.accounts[string(key)]
	if !ok {
		return nil, false
	}
	return account.Clone(), true
}

// GetTransactionLogs returns the program logs of a processed transaction.
func (b *Bank) GetTransactionLogs(sig solana.Signature) ([]string, error) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	logs, ok := b.logs[sig]
	if !ok {
		return nil, solana.ErrSignatureNotFound
	}
	return append([]string(nil), logs...), nil
}

// storeAccount must be called with accountsMu held for writing.
func (b *Bank) storeAccount(key ed25519.PublicKey, account *runtime.Account) {
	if account.Lamports == 0 {
		delete(b.accounts, string(key))
		return
	}
	b.accounts[string(key)] = account
}

// advance moves the bank into a new slot after a transaction was processed.
// It must be called with stateMu held for writing.
func (b *Bank) advance(sig solana.Signature) uint64 {
	b.slot++

	var slotBytes [8]byte
	binary.LittleEndian.PutUint64(slotBytes[:], b.slot)

	h := sha256.New()
	h.Write(b.blockhashes[len(b.blockhashes)-1][:])
	h.Write(slotBytes[:])
	h.Write(sig[:])

	var next solana.Blockhash
	copy(next[:], h.Sum(nil))

	b.blockhashes = append(b.blockhashes, next)
	if len(b.blockhashes) > MaxRecentBlockhashes {
		b.blockhashes = b.blockhashes[len(b.blockhashes)-MaxRecentBlockhashes:]
	}

	return b.slot
}

func (b *Bank) isRecentBlockhash(bh solana.Blockhash) bool {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	for _, recent := range b.blockhashes {
		if recent == bh {
			return true
		}
	}
	return false
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
