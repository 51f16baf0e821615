package token

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/solana"
	"github.com/code-payments/code-escrow/pkg/solana/system"
	"github.com/code-payments/code-escrow/pkg/testutil"
)

type metaFlags struct {
	signer   bool
	writable bool
}

var (
	writable = metaFlags{writable: true}
	signer   = metaFlags{signer: true}
	readonly = metaFlags{}
)

func requireMetas(t *testing.T, ix solana.Instruction, keys []ed25519.PublicKey, flags ...metaFlags) {
	require.Len(t, ix.Accounts, len(flags))
	for i, f := range flags {
		if i < len(keys) && keys[i] != nil {
			assert.EqualValues(t, keys[i], ix.Accounts[i].PublicKey, "account %d key", i)
		}
		assert.Equal(t, f.signer, ix.Accounts[i].IsSigner, "account %d signer", i)
		assert.Equal(t, f.writable, ix.Accounts[i].IsWritable, "account %d writable", i)
	}
}

func TestGetCommand(t *testing.T) {
	cmd, err := GetCommand(nil)
	assert.Equal(t, CommandUnknown, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing data")

	cmd, err = GetCommand([]byte{byte(CommandCloseAccount), 0xff})
	require.NoError(t, err)
	assert.Equal(t, CommandCloseAccount, cmd)
}

func TestInitializeMint_Encoding(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	mint, authority, freeze := keys[0], keys[1], keys[2]

	for _, tc := range []struct {
		name     string
		freeze   ed25519.PublicKey
		decimals byte
	}{
		{"without freeze authority", nil, 6},
		{"with freeze authority", freeze, 9},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ix := InitializeMint(mint, authority, tc.freeze, tc.decimals)
			assert.Equal(t, ProgramKey, ix.Program)
			assert.Len(t, ix.Data, 3+ed25519.PublicKeySize+len(tc.freeze))
			requireMetas(t, ix, []ed25519.PublicKey{mint, system.RentSysVar}, writable, readonly)

			args, err := DecodeInitializeMintData(ix.Data)
			require.NoError(t, err)
			assert.Equal(t, tc.decimals, args.Decimals)
			assert.Equal(t, authority, args.MintAuthority)
			if tc.freeze == nil {
				assert.Nil(t, args.FreezeAuthority)
			} else {
				assert.Equal(t, tc.freeze, args.FreezeAuthority)
			}

			_, err = DecodeInitializeMintData(ix.Data[:len(ix.Data)-1])
			assert.Error(t, err)
		})
	}

	ix := InitializeMint(mint, authority, nil, 0)
	ix.Data[0] = byte(CommandTransfer)
	_, err := DecodeInitializeMintData(ix.Data)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func TestInitializeAccount_Encoding(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	ix := InitializeAccount(keys[0], keys[1], keys[2])
	assert.Equal(t, []byte{byte(CommandInitializeAccount)}, ix.Data)
	requireMetas(t, ix,
		[]ed25519.PublicKey{keys[0], keys[1], keys[2], system.RentSysVar},
		writable, readonly, readonly, readonly,
	)
}

func TestSetAuthority_Encoding(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	account, current, next := keys[0], keys[1], keys[2]

	ix := SetAuthority(account, current, next, AuthorityTypeCloseAccount)
	assert.Equal(t, []byte{byte(CommandSetAuthority), byte(AuthorityTypeCloseAccount), 1}, ix.Data[:3])
	requireMetas(t, ix, []ed25519.PublicKey{account, current}, writable, signer)

	args, err := DecodeSetAuthorityData(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, next, args.NewAuthority)
	assert.Equal(t, AuthorityTypeCloseAccount, args.Type)

	cleared := SetAuthority(account, current, nil, AuthorityTypeAccountHolder)
	assert.Equal(t, []byte{byte(CommandSetAuthority), byte(AuthorityTypeAccountHolder), 0}, cleared.Data)
	args, err = DecodeSetAuthorityData(cleared.Data)
	require.NoError(t, err)
	assert.Nil(t, args.NewAuthority)
}

func TestDecodeSetAuthorityData_Invalid(t *testing.T) {
	next := testutil.GenerateSolanaKeys(t, 1)[0]
	valid := append([]byte{byte(CommandSetAuthority), byte(AuthorityTypeMintTokens), 1}, next...)

	mutate := func(f func([]byte) []byte) []byte {
		return f(append([]byte(nil), valid...))
	}

	for _, tc := range []struct {
		name   string
		data   []byte
		target error
		substr string
	}{
		{name: "empty", data: nil, target: solana.ErrIncorrectInstruction},
		{name: "wrong command", data: mutate(func(b []byte) []byte { b[0] = byte(CommandApprove); return b }), target: solana.ErrIncorrectInstruction},
		{name: "unknown authority type", data: mutate(func(b []byte) []byte { b[1] = 4; return b }), substr: "invalid authority type"},
		{name: "truncated key", data: valid[:len(valid)-1], substr: "invalid data size"},
		{name: "trailing bytes without key", data: []byte{byte(CommandSetAuthority), 0, 0, 0}, substr: "invalid data size"},
		{name: "bad option tag", data: []byte{byte(CommandSetAuthority), 0, 2}, substr: "invalid option"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSetAuthorityData(tc.data)
			require.Error(t, err)
			if tc.target != nil {
				assert.Equal(t, tc.target, err)
			}
			if tc.substr != "" {
				assert.Contains(t, err.Error(), tc.substr)
			}
		})
	}
}

func TestAmountInstructions(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	for _, tc := range []struct {
		name    string
		command Command
		build   func(a, b, c ed25519.PublicKey, amount uint64) solana.Instruction
		amount  uint64
		data    []byte
	}{
		{"transfer", CommandTransfer, Transfer, 123456789, []byte{3, 0x15, 0xcd, 0x5b, 0x07, 0, 0, 0, 0}},
		{"mint to", CommandMintTo, MintTo, 50, []byte{7, 50, 0, 0, 0, 0, 0, 0, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ix := tc.build(keys[0], keys[1], keys[2], tc.amount)
			assert.Equal(t, tc.data, ix.Data)
			requireMetas(t, ix, keys, writable, writable, signer)

			amount, err := DecodeAmountData(ix.Data, tc.command)
			require.NoError(t, err)
			assert.Equal(t, tc.amount, amount)

			_, err = DecodeAmountData(ix.Data, CommandBurn)
			assert.Equal(t, solana.ErrIncorrectInstruction, err)

			_, err = DecodeAmountData(ix.Data[:1], tc.command)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid instruction data size")
		})
	}
}

func TestCloseAccount_Encoding(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	ix := CloseAccount(keys[0], keys[1], keys[2])
	assert.Equal(t, []byte{byte(CommandCloseAccount)}, ix.Data)
	requireMetas(t, ix, keys, writable, writable, signer)
}
