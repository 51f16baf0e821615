package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

// GenerateSolanaKeypair returns a fresh random signer.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

func GenerateSolanaKeypairs(t *testing.T, n int) []ed25519.PrivateKey {
	signers := make([]ed25519.PrivateKey, 0, n)
	for len(signers) < n {
		signers = append(signers, GenerateSolanaKeypair(t))
	}
	return signers
}

// GenerateSolanaKeys returns n random addresses with no retained signer.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, 0, n)
	for _, signer := range GenerateSolanaKeypairs(t, n) {
		keys = append(keys, signer.Public().(ed25519.PublicKey))
	}
	return keys
}
