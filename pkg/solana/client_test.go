package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureStatus_Levels(t *testing.T) {
	zero, two := 0, 2

	for _, tc := range []struct {
		name          string
		confirmations *int
		status        string
		confirmed     bool
		finalized     bool
	}{
		{"unconfirmed", &zero, "", false, false},
		{"unknown status", &zero, "pending", false, false},
		{"processed", &zero, confirmationStatusProcessed, false, false},
		{"voted on", &two, "", true, false},
		{"confirmed", &zero, confirmationStatusConfirmed, true, false},
		{"finalized", &zero, confirmationStatusFinalized, true, true},
		{"rooted", nil, "", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := SignatureStatus{Slot: 1, Confirmations: tc.confirmations, ConfirmationStatus: tc.status}
			assert.Equal(t, tc.confirmed, s.Confirmed())
			assert.Equal(t, tc.finalized, s.Finalized())

			assert.True(t, s.Reached(CommitmentProcessed))
			assert.Equal(t, tc.confirmed, s.Reached(CommitmentConfirmed))
			assert.Equal(t, tc.finalized, s.Reached(CommitmentFinalized))
		})
	}
}

func TestCommitmentFromString(t *testing.T) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		actual, err := CommitmentFromString(c.Commitment)
		require.NoError(t, err)
		assert.Equal(t, c, actual)
	}

	_, err := CommitmentFromString("max")
	assert.Error(t, err)
}

func TestResolveEnvironment(t *testing.T) {
	assert.Equal(t, EnvironmentDev, ResolveEnvironment("devnet"))
	assert.Equal(t, EnvironmentProd, ResolveEnvironment("mainnet-beta"))
	assert.Equal(t, EnvironmentLocal, ResolveEnvironment("local"))
	assert.Equal(t, Environment("http://rpc.internal:8899"), ResolveEnvironment("http://rpc.internal:8899"))
}
