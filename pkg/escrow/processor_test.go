package escrow

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
	"github.com/code-payments/code-escrow/pkg/solana/localnet"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/solana/token"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

// swapEnv is a localnet with two funded parties holding X and Y tokens.
type swapEnv struct {
	bank *localnet.Bank

	initializer, acceptor ed25519.PrivateKey
	mintX, mintY          ed25519.PublicKey

	initializerX, initializerY ed25519.PublicKey
	acceptorX, acceptorY       ed25519.PublicKey

	temp, escrow ed25519.PrivateKey
	authority    ed25519.PublicKey

	tokenRent, escrowRent uint64
}

func newSwapEnv(t *testing.T, initializerX, acceptorY uint64) *swapEnv {
	bank, err := localnet.New(nil, localnet.WithEnvConfigs())
	require.NoError(t, err)
	bank.RegisterProgram(escrow_program.PROGRAM_ID, NewProcessor())

	keys := testutil.GenerateSolanaKeypairs(t, 10)
	env := &swapEnv{
		bank:         bank,
		initializer:  keys[0],
		acceptor:     keys[1],
		mintX:        public(keys[2]),
		mintY:        public(keys[3]),
		initializerX: public(keys[4]),
		initializerY: public(keys[5]),
		acceptorX:    public(keys[6]),
		acceptorY:    public(keys[7]),
		temp:         keys[8],
		escrow:       keys[9],
	}

	env.authority, _, err = escrow_program.GetAuthorityAddress(nil)
	require.NoError(t, err)

	env.tokenRent, err = bank.GetMinimumBalanceForRentExemption(token.AccountSize)
	require.NoError(t, err)
	env.escrowRent, err = bank.GetMinimumBalanceForRentExemption(escrow_program.EscrowAccountSize)
	require.NoError(t, err)
	mintRent, err := bank.GetMinimumBalanceForRentExemption(token.MintSize)
	require.NoError(t, err)

	for _, key := range []ed25519.PrivateKey{env.initializer, env.acceptor} {
		_, err := bank.RequestAirdrop(public(key), localnet.LamportsPerSol, solana.CommitmentFinalized)
		require.NoError(t, err)
	}

	// Split in two so each transaction stays under the packet size limit.
	payer := public(env.initializer)
	env.submit(t, []ed25519.PrivateKey{env.initializer, keys[2], keys[3], keys[4], keys[5]},
		system.CreateAccount(payer, env.mintX, token.ProgramKey, mintRent, token.MintSize),
		token.InitializeMint(env.mintX, payer, nil, 0),
		system.CreateAccount(payer, env.mintY, token.ProgramKey, mintRent, token.MintSize),
		token.InitializeMint(env.mintY, payer, nil, 0),
		system.CreateAccount(payer, env.initializerX, token.ProgramKey, env.tokenRent, token.AccountSize),
		token.InitializeAccount(env.initializerX, env.mintX, payer),
		system.CreateAccount(payer, env.initializerY, token.ProgramKey, env.tokenRent, token.AccountSize),
		token.InitializeAccount(env.initializerY, env.mintY, payer),
	)
	env.submit(t, []ed25519.PrivateKey{env.initializer, keys[6], keys[7]},
		system.CreateAccount(payer, env.acceptorX, token.ProgramKey, env.tokenRent, token.AccountSize),
		token.InitializeAccount(env.acceptorX, env.mintX, public(env.acceptor)),
		system.CreateAccount(payer, env.acceptorY, token.ProgramKey, env.tokenRent, token.AccountSize),
		token.InitializeAccount(env.acceptorY, env.mintY, public(env.acceptor)),
		token.MintTo(env.mintX, env.initializerX, payer, initializerX),
		token.MintTo(env.mintY, env.acceptorY, payer, acceptorY),
	)

	return env
}

// setupInstructions moves deposit X tokens into a fresh temp account and
// opens an escrow expecting amount Y tokens, in a single transaction.
func (e *swapEnv) setupInstructions(deposit, amount uint64, legacy bool) []solana.Instruction {
	initializer := public(e.initializer)

	accounts := &escrow_program.InitEscrowInstructionAccounts{
		Initializer:           initializer,
		TempTokenAccount:      public(e.temp),
		TokenToReceiveAccount: e.initializerY,
		Escrow:                public(e.escrow),
	}
	args := &escrow_program.InitEscrowInstructionArgs{Amount: amount}

	initEscrow := escrow_program.NewInitEscrowInstruction(accounts, args)
	if legacy {
		initEscrow = escrow_program.NewLegacyInitEscrowInstruction(accounts, args)
	}

	return []solana.Instruction{
		system.CreateAccount(initializer, public(e.temp), token.ProgramKey, e.tokenRent, token.AccountSize),
		token.InitializeAccount(public(e.temp), e.mintX, initializer),
		token.Transfer(e.initializerX, public(e.temp), initializer, deposit),
		system.CreateAccount(initializer, public(e.escrow), escrow_program.PROGRAM_ID, e.escrowRent, escrow_program.EscrowAccountSize),
		initEscrow,
	}
}

func (e *swapEnv) setup(t *testing.T, deposit, amount uint64) {
	e.submit(t, []ed25519.PrivateKey{e.initializer, e.temp, e.escrow}, e.setupInstructions(deposit, amount, false)...)
}

func (e *swapEnv) exchangeInstruction(amount uint64) solana.Instruction {
	return escrow_program.NewExchangeInstruction(
		&escrow_program.ExchangeInstructionAccounts{
			Acceptor:                  public(e.acceptor),
			AcceptorDebitAccount:      e.acceptorY,
			AcceptorCreditAccount:     e.acceptorX,
			TempTokenAccount:          public(e.temp),
			Initializer:               public(e.initializer),
			InitializerReceiveAccount: e.initializerY,
			Escrow:                    public(e.escrow),
			Authority:                 e.authority,
		},
		&escrow_program.ExchangeInstructionArgs{Amount: amount},
	)
}

func (e *swapEnv) submit(t *testing.T, signers []ed25519.PrivateKey, instructions ...solana.Instruction) solana.Signature {
	sig, err := e.submitErr(t, signers, instructions...)
	require.NoError(t, err)
	return sig
}

func (e *swapEnv) submitErr(t *testing.T, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	blockhash, err := e.bank.GetLatestBlockhash()
	require.NoError(t, err)

	txn := solana.NewTransaction(public(signers[0]), instructions...)
	txn.SetBlockhash(blockhash)
	require.NoError(t, txn.Sign(signers...))

	return e.bank.SubmitTransaction(txn, solana.CommitmentFinalized)
}

func (e *swapEnv) tokenBalance(t *testing.T, account ed25519.PublicKey) uint64 {
	amount, _, err := e.bank.GetTokenAccountBalance(account)
	require.NoError(t, err)
	return amount
}

func (e *swapEnv) balances(t *testing.T) []uint64 {
	return []uint64{
		e.tokenBalance(t, e.initializerX),
		e.tokenBalance(t, e.initializerY),
		e.tokenBalance(t, e.acceptorX),
		e.tokenBalance(t, e.acceptorY),
		e.tokenBalance(t, public(e.temp)),
	}
}

func TestProcessor_SetupFitsPacket(t *testing.T) {
	env := newSwapEnv(t, 50, 30)

	for _, legacy := range []bool{false, true} {
		blockhash, err := env.bank.GetLatestBlockhash()
		require.NoError(t, err)

		txn := solana.NewTransaction(public(env.initializer), env.setupInstructions(50, 30, legacy)...)
		txn.SetBlockhash(blockhash)
		require.NoError(t, txn.Sign(env.initializer, env.temp, env.escrow))

		assert.LessOrEqual(t, len(txn.Marshal()), solana.MaxTransactionSize)
	}
}

func TestProcessor_Swap(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		env := newSwapEnv(t, 50, 30)

		sig := env.submit(t, []ed25519.PrivateKey{env.initializer, env.temp, env.escrow}, env.setupInstructions(50, 30, legacy)...)

		logs, err := env.bank.GetTransactionLogs(sig)
		require.NoError(t, err)
		assert.Contains(t, logs, "Instruction: InitEscrow")

		// The deposit is now held by the custody authority
		custody, err := token.NewClient(env.bank).GetAccount(public(env.temp), env.mintX, solana.CommitmentFinalized)
		require.NoError(t, err)
		assert.EqualValues(t, env.authority, custody.Owner)
		assert.EqualValues(t, 50, custody.Amount)

		info, err := env.bank.GetAccountInfo(public(env.escrow), solana.CommitmentFinalized)
		require.NoError(t, err)
		assert.EqualValues(t, escrow_program.PROGRAM_ID, info.Owner)

		var record escrow_program.EscrowAccount
		require.NoError(t, record.Unmarshal(info.Data))
		assert.True(t, record.IsInitialized)
		assert.EqualValues(t, public(env.initializer), record.InitializerPubkey)
		assert.EqualValues(t, public(env.temp), record.TempTokenAccountPubkey)
		assert.EqualValues(t, env.initializerY, record.InitializerTokenToReceiveAccountPubkey)
		assert.EqualValues(t, 30, record.ExpectedAmount)

		lamportsBefore, err := env.bank.GetBalance(public(env.initializer))
		require.NoError(t, err)

		sig = env.submit(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(30))

		logs, err = env.bank.GetTransactionLogs(sig)
		require.NoError(t, err)
		assert.Contains(t, logs, "Instruction: Exchange")

		assert.EqualValues(t, 0, env.tokenBalance(t, env.initializerX))
		assert.EqualValues(t, 30, env.tokenBalance(t, env.initializerY))
		assert.EqualValues(t, 50, env.tokenBalance(t, env.acceptorX))
		assert.EqualValues(t, 0, env.tokenBalance(t, env.acceptorY))

		// Both the custody and escrow accounts are closed, with rent going
		// back to the initializer
		_, err = env.bank.GetAccountInfo(public(env.temp), solana.CommitmentFinalized)
		assert.Equal(t, solana.ErrNoAccountInfo, err)
		_, err = env.bank.GetAccountInfo(public(env.escrow), solana.CommitmentFinalized)
		assert.Equal(t, solana.ErrNoAccountInfo, err)

		lamportsAfter, err := env.bank.GetBalance(public(env.initializer))
		require.NoError(t, err)
		assert.Equal(t, lamportsBefore+env.tokenRent+env.escrowRent, lamportsAfter)
	}
}

func TestProcessor_ExpectedAmountMismatch(t *testing.T) {
	env := newSwapEnv(t, 50, 30)
	env.setup(t, 50, 30)

	before := env.balances(t)

	for _, amount := range []uint64{29, 31} {
		_, err := env.submitErr(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(amount))
		assert.ErrorIs(t, err, escrow_program.ErrExpectedAmountMismatch)

		txErr, ok := err.(*solana.TransactionError)
		require.True(t, ok)
		require.NotNil(t, txErr.InstructionError())
		assert.EqualValues(t, escrow_program.ErrExpectedAmountMismatch.CustomError(), *txErr.InstructionError().CustomError())
	}

	assert.Equal(t, before, env.balances(t))

	// The escrow is still open to the correct amount
	env.submit(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(30))
	assert.EqualValues(t, 30, env.tokenBalance(t, env.initializerY))
}

func TestProcessor_DoubleExchange(t *testing.T) {
	env := newSwapEnv(t, 50, 60)
	env.setup(t, 50, 30)

	env.submit(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(30))

	_, err := env.submitErr(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(30))
	assert.ErrorIs(t, err, escrow_program.ErrAccountNotFound)

	assert.EqualValues(t, 30, env.tokenBalance(t, env.acceptorY))
	assert.EqualValues(t, 30, env.tokenBalance(t, env.initializerY))

	// Both exchanges in one transaction fail together
	env = newSwapEnv(t, 50, 60)
	env.setup(t, 50, 30)
	before := env.balances(t)

	_, err = env.submitErr(t, []ed25519.PrivateKey{env.acceptor}, env.exchangeInstruction(30), env.exchangeInstruction(30))
	assert.ErrorIs(t, err, escrow_program.ErrNotInitialized)
	assert.Equal(t, before, env.balances(t))
}

func TestProcessor_CustodyExclusive(t *testing.T) {
	env := newSwapEnv(t, 50, 30)
	env.setup(t, 50, 30)

	before := env.balances(t)

	for _, signer := range []ed25519.PrivateKey{env.initializer, env.acceptor} {
		_, err := env.submitErr(t, []ed25519.PrivateKey{signer}, token.Transfer(public(env.temp), env.initializerX, public(signer), 50))
		assert.ErrorIs(t, err, token.ErrorOwnerMismatch)

		_, err = env.submitErr(t, []ed25519.PrivateKey{signer}, token.SetAuthority(public(env.temp), public(signer), public(signer), token.AuthorityTypeAccountHolder))
		assert.ErrorIs(t, err, token.ErrorOwnerMismatch)

		_, err = env.submitErr(t, []ed25519.PrivateKey{signer}, token.CloseAccount(public(env.temp), public(signer), public(signer)))
		assert.Error(t, err)
	}

	assert.Equal(t, before, env.balances(t))
}

func TestProcessor_SetupAtomic(t *testing.T) {
	env := newSwapEnv(t, 50, 30)

	_, err := env.submitErr(t, []ed25519.PrivateKey{env.initializer, env.temp, env.escrow}, env.setupInstructions(50, 0, false)...)
	assert.ErrorIs(t, err, escrow_program.ErrInvalidInstruction)

	assert.EqualValues(t, 50, env.tokenBalance(t, env.initializerX))
	_, err = env.bank.GetAccountInfo(public(env.temp), solana.CommitmentFinalized)
	assert.Equal(t, solana.ErrNoAccountInfo, err)
	_, err = env.bank.GetAccountInfo(public(env.escrow), solana.CommitmentFinalized)
	assert.Equal(t, solana.ErrNoAccountInfo, err)

	// An escrow can't be opened twice
	env.setup(t, 50, 30)

	_, err = env.submitErr(t, []ed25519.PrivateKey{env.initializer}, escrow_program.NewInitEscrowInstruction(
		&escrow_program.InitEscrowInstructionAccounts{
			Initializer:           public(env.initializer),
			TempTokenAccount:      public(env.temp),
			TokenToReceiveAccount: env.initializerY,
			Escrow:                public(env.escrow),
		},
		&escrow_program.InitEscrowInstructionArgs{Amount: 1},
	))
	assert.ErrorIs(t, err, escrow_program.ErrAlreadyInitialized)
}

func TestProcessor_InvalidInstruction(t *testing.T) {
	env := newSwapEnv(t, 50, 30)

	for _, data := range [][]byte{nil, {0}, {2, 1, 0, 0, 0, 0, 0, 0, 0}, {1, 1, 0}} {
		_, err := env.submitErr(t, []ed25519.PrivateKey{env.initializer}, solana.Instruction{
			Program: escrow_program.PROGRAM_ID,
			Data:    data,
		})
		assert.ErrorIs(t, err, escrow_program.ErrInvalidInstruction)
	}

	// Too few accounts for the instruction
	_, err := env.submitErr(t, []ed25519.PrivateKey{env.initializer}, solana.Instruction{
		Program: escrow_program.PROGRAM_ID,
		Data:    (&escrow_program.Instruction{Type: escrow_program.InstructionTypeExchange, Amount: 30}).Marshal(),
	})
	assert.ErrorIs(t, err, escrow_program.ErrNotEnoughAccountKeys)
}

func public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
