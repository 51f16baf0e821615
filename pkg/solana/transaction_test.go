package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Produced by the reference SDK for a single instruction transaction signed
// by the keypair derived from knownSeed.
const knownEncoding = "ATMfBMZ8phHEheLph8K9TJhRKhnE4qNZvWiXdUdJRmlTCRsQjWmW2CkQJeRHBCcsqFm2gynjL40M9mTe0Dxp4QIBAAEDfEya6wnC7f3Cv53qnOEywwIJ928rIdqAlfXYI1adXroBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="

var knownSeed = []byte{
	48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32,
	255, 101, 36, 24, 124, 23, 167, 21, 132, 204, 155, 5, 185, 58, 121, 75,
}

func TestTransaction_KnownEncoding(t *testing.T) {
	signer := ed25519.NewKeyFromSeed(knownSeed)
	program := ed25519.PublicKey{2, 2, 2, 4, 5, 6, 7, 8, 9, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4, 2, 2, 2}
	to := ed25519.PublicKey{1, 1, 1, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 8, 7, 6, 5, 4, 1, 1, 1}

	tx := NewTransaction(
		public(signer),
		NewInstruction(program, []byte{1, 2, 3}, NewAccountMeta(public(signer), true), NewAccountMeta(to, false)),
	)
	require.NoError(t, tx.Sign(signer))

	encoded := tx.Marshal()
	assert.Equal(t, knownEncoding, base64.StdEncoding.EncodeToString(encoded))

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(encoded))
	assert.Equal(t, encoded, decoded.Marshal())
	assert.NoError(t, decoded.VerifySignatures())
}

func TestTransaction_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 4)

	tx := NewTransaction(
		public(keys[0]),
		NewInstruction(public(keys[1]), []byte{0, 50, 0, 0, 0, 0, 0, 0, 0}, NewAccountMeta(public(keys[2]), false)),
		NewInstruction(public(keys[1]), make([]byte, 300), NewReadonlyAccountMeta(public(keys[3]), false)),
		NewInstruction(public(keys[1]), nil, NewAccountMeta(nil, false)),
	)
	tx.SetBlockhash(Blockhash{9, 9, 9})
	require.NoError(t, tx.Sign(keys[0]))

	var decoded Transaction
	require.NoError(t, decoded.Unmarshal(tx.Marshal()))
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Equal(t, tx.Message.Header, decoded.Message.Header)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	assert.Equal(t, tx.Message.Accounts, decoded.Message.Accounts)
	require.Len(t, decoded.Message.Instructions, 3)
	assert.Len(t, decoded.Message.Instructions[1].Data, 300)
}

func TestMessage_UnmarshalInvalid(t *testing.T) {
	keys := generateKeys(t, 2)
	build := func() Transaction {
		return NewTransaction(
			public(keys[0]),
			NewInstruction(public(keys[1]), nil, NewAccountMeta(public(keys[0]), true)),
		)
	}

	tx := build()
	tx.Message.Instructions[0].ProgramIndex = 2
	assert.Error(t, tx.Unmarshal(tx.Marshal()))

	tx = build()
	tx.Message.Instructions[0].Accounts = []byte{2}
	assert.Error(t, tx.Unmarshal(tx.Marshal()))

	var m Message
	assert.Error(t, m.Unmarshal(nil))
	assert.Error(t, m.Unmarshal([]byte{0x80, 1, 0, 0}))

	encoded := build().Marshal()
	assert.Error(t, tx.Unmarshal(encoded[:len(encoded)-1]))
}

// TestNewTransaction_Layout checks the account ordering and permission
// merging performed when compiling a message.
func TestNewTransaction_Layout(t *testing.T) {
	payer, programA, programB := sortedKeys(t, 3)[0], generateKeys(t, 1)[0], generateKeys(t, 1)[0]
	keys := sortedKeys(t, 6)

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(programB),
			[]byte{1},
			NewReadonlyAccountMeta(public(keys[0]), true),
			NewReadonlyAccountMeta(public(keys[1]), false),
			NewAccountMeta(public(keys[2]), false),
			NewAccountMeta(public(keys[3]), true),
		),
		NewInstruction(
			public(programA),
			[]byte{2},
			// Readonly references never downgrade an earlier writable one.
			NewReadonlyAccountMeta(public(keys[3]), false),
			NewReadonlyAccountMeta(public(keys[2]), false),
			// Later references may upgrade permissions.
			NewAccountMeta(public(keys[0]), false),
			NewReadonlyAccountMeta(public(keys[1]), true),
			NewAccountMeta(public(keys[4]), true),
			NewReadonlyAccountMeta(public(keys[5]), false),
		),
	)
	require.NoError(t, tx.Sign(keys[4], keys[1], payer, keys[3], keys[0]))
	require.NoError(t, tx.VerifySignatures())

	h := tx.Message.Header
	assert.EqualValues(t, 5, h.NumSignatures)
	assert.EqualValues(t, 1, h.NumReadonlySigned)
	assert.EqualValues(t, 3, h.NumReadOnly)

	// payer | writable signers | readonly signers | writable | readonly | programs
	expectedOrder := []ed25519.PublicKey{
		public(payer),
		public(keys[0]), public(keys[3]), public(keys[4]),
		public(keys[1]),
		public(keys[2]),
		public(keys[5]),
	}
	assert.Equal(t, expectedOrder, tx.Message.Accounts[:7])
	assert.ElementsMatch(t, []ed25519.PublicKey{public(programA), public(programB)}, tx.Message.Accounts[7:])

	for i, ix := range tx.Message.Instructions {
		decompiled, err := tx.Message.DecompileInstruction(i)
		require.NoError(t, err)
		assert.Equal(t, ix.Data, decompiled.Data)
	}
	assert.False(t, tx.Message.HasDuplicateAccounts())
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func generateKeys(t *testing.T, n int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}
	return keys
}

func sortedKeys(t *testing.T, n int) []ed25519.PrivateKey {
	keys := generateKeys(t, n)
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(public(keys[i]), public(keys[j])) < 0
	})
	return keys
}

func TestTransaction_AccountPermissions(t *testing.T) {
	keys := generateKeys(t, 6)
	payer := keys[0]
	program := keys[1]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			[]byte{1},
			NewReadonlyAccountMeta(public(keys[2]), true),
			NewAccountMeta(public(keys[3]), true),
			NewAccountMeta(public(keys[4]), false),
			NewReadonlyAccountMeta(public(keys[5]), false),
		),
	)

	for i, account := range tx.Message.Accounts {
		switch {
		case bytes.Equal(account, public(payer)), bytes.Equal(account, public(keys[3])):
			assert.True(t, tx.Message.IsSigner(i))
			assert.True(t, tx.Message.IsWritable(i))
		case bytes.Equal(account, public(keys[2])):
			assert.True(t, tx.Message.IsSigner(i))
			assert.False(t, tx.Message.IsWritable(i))
		case bytes.Equal(account, public(keys[4])):
			assert.False(t, tx.Message.IsSigner(i))
			assert.True(t, tx.Message.IsWritable(i))
		case bytes.Equal(account, public(keys[5])), bytes.Equal(account, public(program)):
			assert.False(t, tx.Message.IsSigner(i))
			assert.False(t, tx.Message.IsWritable(i))
		default:
			t.Fatalf("unexpected account at %d", i)
		}
	}
	assert.False(t, tx.Message.HasDuplicateAccounts())
}

func TestTransaction_DecompileInstruction(t *testing.T) {
	keys := generateKeys(t, 5)
	payer := keys[0]
	program := keys[1]

	expected := NewInstruction(
		public(program),
		[]byte{7, 8, 9},
		NewAccountMeta(public(keys[2]), true),
		NewReadonlyAccountMeta(public(keys[3]), false),
		NewAccountMeta(public(keys[4]), false),
		NewAccountMeta(public(payer), true),
	)

	tx := NewTransaction(public(payer), expected)

	var rtt Transaction
	require.NoError(t, rtt.Unmarshal(tx.Marshal()))

	actual, err := rtt.Message.DecompileInstruction(0)
	require.NoError(t, err)
	assert.Equal(t, expected.Program, actual.Program)
	assert.Equal(t, expected.Data, actual.Data)
	require.Len(t, actual.Accounts, len(expected.Accounts))
	for i := range expected.Accounts {
		assert.Equal(t, expected.Accounts[i].PublicKey, actual.Accounts[i].PublicKey)
		assert.Equal(t, expected.Accounts[i].IsSigner, actual.Accounts[i].IsSigner)
		assert.Equal(t, expected.Accounts[i].IsWritable, actual.Accounts[i].IsWritable)
	}

	_, err = rtt.Message.DecompileInstruction(1)
	assert.Error(t, err)
}

func TestTransaction_VerifySignatures(t *testing.T) {
	keys := generateKeys(t, 3)
	payer := keys[0]
	program := keys[1]
	other := keys[2]

	tx := NewTransaction(
		public(payer),
		NewInstruction(
			public(program),
			[]byte{1, 2, 3},
			NewAccountMeta(public(other), true),
		),
	)
	tx.SetBlockhash(Blockhash{1, 2, 3})

	require.NoError(t, tx.Sign(payer))
	assert.True(t, errors.Is(tx.VerifySignatures(), ErrSignatureVerification))

	require.NoError(t, tx.Sign(other))
	assert.NoError(t, tx.VerifySignatures())

	tx.SetBlockhash(Blockhash{3, 2, 1})
	assert.True(t, errors.Is(tx.VerifySignatures(), ErrSignatureVerification))

	unrelated := generateKeys(t, 1)[0]
	assert.Error(t, tx.Sign(unrelated))
}
