package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, val string) []byte {
	b, err := base58.Decode(val)
	require.NoError(t, err)
	return b
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	programID := mustDecode(t, "BPFLoader1111111111111111111111111111111111")

	_, err := CreateProgramAddress(programID, make([]byte, MaxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, []byte("ok"), make([]byte, MaxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, make([][]byte, MaxSeeds+1)...)
	assert.Equal(t, ErrTooManySeeds, err)

	_, err = CreateProgramAddress(programID, make([]byte, MaxSeedLength))
	assert.NoError(t, err)
}

func TestCreateProgramAddress_KnownVectors(t *testing.T) {
	programID := mustDecode(t, "BPFLoader1111111111111111111111111111111111")
	seedKey := mustDecode(t, "SeedPubey1111111111111111111111111111111111")

	for _, tc := range []struct {
		seeds    [][]byte
		expected string
	}{
		{[][]byte{{}, {1}}, "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT"},
		{[][]byte{[]byte("☉")}, "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7"},
		{[][]byte{[]byte("Talking"), []byte("Squirrels")}, "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds"},
		{[][]byte{seedKey}, "GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K"},
	} {
		address, err := CreateProgramAddress(programID, tc.seeds...)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(address))
	}

	a, err := CreateProgramAddress(programID, []byte("Talking"))
	require.NoError(t, err)
	b, err := CreateProgramAddress(programID, []byte("Talking"), []byte("Squirrels"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var point [32]byte
	copy(point[:], pub)
	assert.True(t, isOnCurve(point))

	programID := mustDecode(t, "BPFLoader1111111111111111111111111111111111")
	address, err := FindProgramAddress(programID, []byte("escrow"))
	require.NoError(t, err)
	copy(point[:], address)
	assert.False(t, isOnCurve(point))
}

func TestFindProgramAddressAndBump(t *testing.T) {
	for i := 0; i < 100; i++ {
		programID, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		address, bump, err := FindProgramAddressAndBump(programID, []byte("escrow"))
		require.NoError(t, err)

		recreated, err := CreateProgramAddress(programID, []byte("escrow"), []byte{bump})
		require.NoError(t, err)
		assert.EqualValues(t, address, recreated)
	}
}

func TestFindProgramAddress_KnownVectors(t *testing.T) {
	for _, tc := range []struct {
		programID string
		expected  string
	}{
		{"4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM", "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd"},
		{"8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh", "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S"},
		{"CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3", "B2vBn2bmF9GuaGkebrm8oUqDC34pE6m4bagjNcVE6msv"},
		{"GcdayuLaLyrdmUu324nahyv33G5poQdLUEZ1nEytDeP", "2mN5Nfq9v1EwTV9FPTHPESZ3XiZce9wi5PQoULFuxvev"},
		{"LX3EUdRUBUa3TbsYXLEUdj9J3prXkWXvLYSWyYyc2Jj", "9CqF6oTZtW5zSeoLnZRoQmj3s2tXGPqifM1W8Z8LVE1z"},
		{"21Z7hRtGQYRi8NocdZzhRuBRt9UZbFXbm1dKYvevp4vB", "9PPbRbNP3rqwzk16r7NDBzk1YDfo9EpWDWSqCYLn5eaF"},
	} {
		actual, err := FindProgramAddress(mustDecode(t, tc.programID), []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(actual))
	}
}
