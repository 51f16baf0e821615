package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// AuthoritySeed is the protocol constant the custody authority is derived
// from. Every caller and the program itself must agree on it.
var AuthoritySeed = []byte("escrow")

type GetAuthorityAddressArgs struct {
	// Program defaults to PROGRAM_ID when unset
	Program ed25519.PublicKey
}

// GetAuthorityAddress derives the custody authority that holds every
// initializer's deposit in trust.
func GetAuthorityAddress(args *GetAuthorityAddressArgs) (ed25519.PublicKey, uint8, error) {
	program := PROGRAM_ID
	if args != nil && len(args.Program) > 0 {
		program = args.Program
	}

	return solana.FindProgramAddressAndBump(
		program,
		AuthoritySeed,
	)
}

// AuthoritySignerSeeds returns the seeds the program signs with when acting
// as the custody authority.
func AuthoritySignerSeeds(bump uint8) [][]byte {
	return [][]byte{AuthoritySeed, {bump}}
}
