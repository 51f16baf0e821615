package escrow

import (
	"fmt"

	"github.com/code-payments/code-escrow/pkg/solana"
)

// EscrowError is a custom program error returned by the escrow program. The
// numerical value is what surfaces as the Custom code of an InstructionError.
type EscrowError uint32

const (
	// Invalid instruction
	ErrInvalidInstruction EscrowError = iota + 0x01

	// Not rent exempt
	ErrNotRentExempt

	// Expected amount mismatch
	ErrExpectedAmountMismatch

	// Amount overflow
	ErrAmountOverflow

	// Escrow account already initialized
	ErrAlreadyInitialized

	// Escrow account not initialized
	ErrNotInitialized

	// Missing required signature
	ErrMissingSignature

	// Custody authority mismatch
	ErrInvalidAuthority

	// Insufficient funds
	ErrInsufficientFunds

	// Account not found
	ErrAccountNotFound

	// Account not owned by the expected program
	ErrIncorrectProgramID

	// Account data doesn't match the escrow record
	ErrInvalidAccountData

	// Not enough account keys provided
	ErrNotEnoughAccountKeys
)

var escrowErrorNames = map[EscrowError]string{
	ErrInvalidInstruction:     "InvalidInstruction",
	ErrNotRentExempt:          "NotRentExempt",
	ErrExpectedAmountMismatch: "ExpectedAmountMismatch",
	ErrAmountOverflow:         "AmountOverflow",
	ErrAlreadyInitialized:     "AlreadyInitialized",
	ErrNotInitialized:         "NotInitialized",
	ErrMissingSignature:       "MissingSignature",
	ErrInvalidAuthority:       "InvalidAuthority",
	ErrInsufficientFunds:      "InsufficientFunds",
	ErrAccountNotFound:        "AccountNotFound",
	ErrIncorrectProgramID:     "IncorrectProgramID",
	ErrInvalidAccountData:     "InvalidAccountData",
	ErrNotEnoughAccountKeys:   "NotEnoughAccountKeys",
}

func (e EscrowError) Error() string {
	name, ok := escrowErrorNames[e]
	if !ok {
		return fmt.Sprintf("escrow error: unknown (0x%x)", uint32(e))
	}
	return fmt.Sprintf("escrow error: %s (0x%x)", name, uint32(e))
}

// Name returns the variant name, without the code
func (e EscrowError) Name() string {
	name, ok := escrowErrorNames[e]
	if !ok {
		return "Unknown"
	}
	return name
}

// CustomError converts the error into the generic custom program error form
// used by the transaction error model.
func (e EscrowError) CustomError() solana.CustomError {
	return solana.CustomError(e)
}

// EscrowErrorFromCustom maps a custom program error code back to the escrow
// error it represents.
func EscrowErrorFromCustom(code solana.CustomError) (EscrowError, bool) {
	e := EscrowError(code)
	_, ok := escrowErrorNames[e]
	return e, ok
}
