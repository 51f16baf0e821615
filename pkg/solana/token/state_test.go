package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Token account captured from mainnet, holding no delegate or close authority.
const knownAccountHex = "118a08c9d4cc46c576282e0daf050bbdb04f03313e35e5db3f3def69fa1eeec42b15a9cd4bef2cd809e464570d2a6cbd9bcc64e32ea4ebbcf748757bbb3dd5bd000084e2506ce67c000000000000000000000000000000000000000000000000000000000000000000000000010000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"

func filledKey(v byte) ed25519.PublicKey {
	return bytes.Repeat([]byte{v}, ed25519.PublicKeySize)
}

func TestAccount_KnownEncoding(t *testing.T) {
	raw, err := hex.DecodeString(knownAccountHex)
	require.NoError(t, err)
	require.Len(t, raw, AccountSize)

	var account Account
	require.True(t, account.Unmarshal(raw))
	assert.Equal(t, "2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm", base58.Encode(account.Mint))
	assert.EqualValues(t, 9_000_000_000_000_000_000, account.Amount)
	assert.Equal(t, AccountStateInitialized, account.State)
	assert.True(t, account.IsInitialized())
	assert.Nil(t, account.Delegate)
	assert.Nil(t, account.IsNative)
	assert.Nil(t, account.CloseAuthority)

	assert.Equal(t, raw, account.Marshal())
}

func TestAccount_Encoding(t *testing.T) {
	reserve := uint64(2_039_280)

	for _, tc := range []struct {
		name    string
		account Account
	}{
		{
			name: "minimal",
			account: Account{
				Mint:   filledKey(1),
				Owner:  filledKey(2),
				Amount: 42,
				State:  AccountStateInitialized,
			},
		},
		{
			name: "all optionals",
			account: Account{
				Mint:            filledKey(1),
				Owner:           filledKey(2),
				Amount:          10,
				Delegate:        filledKey(3),
				State:           AccountStateFrozen,
				IsNative:        &reserve,
				DelegatedAmount: 5,
				CloseAuthority:  filledKey(4),
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.account.Marshal()
			require.Len(t, b, AccountSize)

			var decoded Account
			require.True(t, decoded.Unmarshal(b))
			assert.Equal(t, tc.account, decoded)
		})
	}

	var account Account
	assert.False(t, account.Unmarshal(make([]byte, AccountSize-1)))
	assert.False(t, account.Unmarshal(make([]byte, AccountSize+1)))
}

func TestMint_Encoding(t *testing.T) {
	mint := Mint{
		MintAuthority: filledKey(4),
		Supply:        1_000_000,
		Decimals:      6,
		IsInitialized: true,
	}

	b := mint.Marshal()
	require.Len(t, b, MintSize)
	assert.EqualValues(t, 1, b[0], "authority option tag")
	assert.EqualValues(t, 6, b[44], "decimals")
	assert.EqualValues(t, 1, b[45], "initialized flag")

	var decoded Mint
	require.True(t, decoded.Unmarshal(b))
	assert.Equal(t, mint, decoded)

	assert.False(t, decoded.Unmarshal(b[:MintSize-1]))
}
