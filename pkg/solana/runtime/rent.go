package runtime

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

const (
	// RentSize is the serialized size of the rent sysvar.
	RentSize = 8 + 8 + 1

	// Storage overhead charged on top of the account data.
	//
	// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/rent.rs#L45
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear uint64  = 3480
	DefaultExemptionThreshold  float64 = 2.0
	DefaultBurnPercent         uint8   = 50
)

var ErrInvalidRentData = errors.New("invalid rent sysvar data")

// Rent mirrors the cluster's rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent returns the rent configuration used by mainnet.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance is the lamport balance an account of the provided size
// must hold to be exempt from rent.
func (r Rent) MinimumBalance(size uint64) uint64 {
	bytes := AccountStorageOverhead + size
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt returns whether the balance is sufficient for an account of the
// provided size.
func (r Rent) IsExempt(lamports, size uint64) bool {
	return lamports >= r.MinimumBalance(size)
}

func (r Rent) Marshal() []byte {
	b := make([]byte, RentSize)
	binary.LittleEndian.PutUint64(b, r.LamportsPerByteYear)
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(r.ExemptionThreshold))
	b[16] = r.BurnPercent
	return b
}

func (r *Rent) Unmarshal(b []byte) error {
	if len(b) < RentSize {
		return ErrInvalidRentData
	}

	r.LamportsPerByteYear = binary.LittleEndian.Uint64(b)
	r.ExemptionThreshold = math.Float64frombits(binary.LittleEndian.Uint64(b[8:]))
	r.BurnPercent = b[16]
	return nil
}
