package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"github.com/code-payments/code-escrow/pkg/solana/runtime"
)

func mustDecode(s string) ed25519.PublicKey {
	b, err := base58.Decode(s)
	if err != nil {
		panic(err)
	}
	return b
}

var (
	// SystemAccount is the system program's address, all ones in base58.
	SystemAccount = mustDecode("11111111111111111111111111111111")

	// RentSysVar holds the cluster's rent configuration.
	RentSysVar = mustDecode("SysvarRent111111111111111111111111111111111")

	SysvarOwner = mustDecode("Sysvar1111111111111111111111111111111111111")
)

// NewRentSysVarAccount returns the account holding the serialized rent
// configuration, funded to be rent exempt under that same configuration.
func NewRentSysVarAccount(rent runtime.Rent) *runtime.Account {
	return &runtime.Account{
		Owner:    SysvarOwner,
		Lamports: rent.MinimumBalance(runtime.RentSize),
		Data:     rent.Marshal(),
	}
}

// GetRent reads the rent configuration out of the rent sysvar account.
func GetRent(info *runtime.AccountInfo) (runtime.Rent, error) {
	var rent runtime.Rent
	if !info.IsOwnedBy(SysvarOwner) {
		return rent, runtime.ErrInvalidRentData
	}
	return rent, rent.Unmarshal(info.Data)
}
