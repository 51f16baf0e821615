package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/testutil"
)

func TestEscrowAccount_RoundTrip(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	expected := &EscrowAccount{
		IsInitialized:                          true,
		InitializerPubkey:                      keys[0],
		TempTokenAccountPubkey:                 keys[1],
		InitializerTokenToReceiveAccountPubkey: keys[2],
		ExpectedAmount:                         30,
	}

	data := expected.Marshal()
	require.Len(t, data, EscrowAccountSize)
	assert.Equal(t, 105, EscrowAccountSize)

	var actual EscrowAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, &actual)
}

func TestEscrowAccount_Layout(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	data := (&EscrowAccount{
		IsInitialized:                          true,
		InitializerPubkey:                      keys[0],
		TempTokenAccountPubkey:                 keys[1],
		InitializerTokenToReceiveAccountPubkey: keys[2],
		ExpectedAmount:                         0x0a0b,
	}).Marshal()

	assert.EqualValues(t, 1, data[0])
	assert.Equal(t, []byte(keys[0]), data[1:33])
	assert.Equal(t, []byte(keys[1]), data[33:65])
	assert.Equal(t, []byte(keys[2]), data[65:97])
	assert.Equal(t, []byte{0x0b, 0x0a, 0, 0, 0, 0, 0, 0}, data[97:105])
}

func TestEscrowAccount_Uninitialized(t *testing.T) {
	var actual EscrowAccount
	require.NoError(t, actual.Unmarshal(make([]byte, EscrowAccountSize)))
	assert.False(t, actual.IsInitialized)
	assert.EqualValues(t, 0, actual.ExpectedAmount)
}

func TestEscrowAccount_InvalidData(t *testing.T) {
	var actual EscrowAccount
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(make([]byte, EscrowAccountSize-1)))
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(make([]byte, EscrowAccountSize+1)))

	data := make([]byte, EscrowAccountSize)
	data[0] = 2
	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data))
}
