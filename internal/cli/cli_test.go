package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/escrow/client"
	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
)

func execute(t *testing.T, args ...string) ([]byte, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))

	err := rootCmd.Execute()
	return out.Bytes(), err
}

func TestEncodeDecode(t *testing.T) {
	out, err := execute(t, "encode", "exchange", "30")
	require.NoError(t, err)

	var encoded instructionOutput
	require.NoError(t, json.Unmarshal(out, &encoded))
	assert.Equal(t, escrow_program.InstructionTypeExchange.String(), encoded.Type)
	assert.EqualValues(t, 30, encoded.Amount)
	assert.Equal(t, "011e00000000000000", encoded.Hex)

	out, err = execute(t, "decode", "001e00000000000000ff")
	require.NoError(t, err)

	var decoded instructionOutput
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, escrow_program.InstructionTypeInitEscrow.String(), decoded.Type)
	assert.EqualValues(t, 30, decoded.Amount)

	_, err = execute(t, "encode", "refund", "30")
	assert.Error(t, err)

	_, err = execute(t, "encode", "init", "-1")
	assert.Error(t, err)

	_, err = execute(t, "decode", "02")
	assert.ErrorIs(t, err, escrow_program.ErrInvalidInstruction)
}

func TestAuthority(t *testing.T) {
	expected, bump, err := escrow_program.GetAuthorityAddress(nil)
	require.NoError(t, err)

	out, err := execute(t, "authority")
	require.NoError(t, err)

	var actual struct {
		ProgramID string `json:"program_id"`
		Authority string `json:"authority"`
		Bump      uint8  `json:"bump"`
	}
	require.NoError(t, json.Unmarshal(out, &actual))
	assert.Equal(t, base58.Encode(escrow_program.PROGRAM_ID), actual.ProgramID)
	assert.Equal(t, base58.Encode(expected), actual.Authority)
	assert.Equal(t, bump, actual.Bump)
}

func TestDemo_Localnet(t *testing.T) {
	out, err := execute(t, "demo", "--deposit", "50", "--expected", "30")
	require.NoError(t, err)

	var res demoOutput
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, client.Balances{InitializerX: 50, AcceptorY: 30}, res.Before)
	assert.Equal(t, client.Balances{InitializerY: 30, AcceptorX: 50}, res.After)
	assert.NotEmpty(t, res.Escrow)
	assert.Len(t, res.RunID, 36)
}

func TestOffers_RequiresPostgres(t *testing.T) {
	_, err := execute(t, "offers", "open")
	assert.Error(t, err)

	_, err = execute(t, "offers", "count")
	assert.Error(t, err)
}
