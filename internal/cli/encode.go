package cli

import (
	"encoding/hex"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
)

var encodeCmd = &cobra.Command{
	Use:       "encode <init|exchange> <amount>",
	Short:     "Encode escrow instruction data",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"init", "exchange"},
	RunE:      runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode escrow instruction data",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
}

type instructionOutput struct {
	Type   string `json:"type"`
	Amount uint64 `json:"amount"`
	Hex    string `json:"hex"`
	Base58 string `json:"base58"`
}

func runEncode(cmd *cobra.Command, args []string) error {
	var ixn escrow_program.Instruction
	switch args[0] {
	case "init":
		ixn.Type = escrow_program.InstructionTypeInitEscrow
	case "exchange":
		ixn.Type = escrow_program.InstructionTypeExchange
	default:
		return errors.Errorf("unknown instruction %q", args[0])
	}

	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return errors.Wrap(err, "invalid amount")
	}
	ixn.Amount = amount

	return printInstruction(cmd, &ixn, ixn.Marshal())
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := hex.DecodeString(args[0])
	if err != nil {
		return errors.Wrap(err, "invalid hex")
	}

	ixn, err := escrow_program.UnmarshalInstruction(data)
	if err != nil {
		return err
	}
	return printInstruction(cmd, ixn, data)
}

func printInstruction(cmd *cobra.Command, ixn *escrow_program.Instruction, data []byte) error {
	return printJSON(cmd, &instructionOutput{
		Type:   ixn.Type.String(),
		Amount: ixn.Amount,
		Hex:    hex.EncodeToString(data),
		Base58: base58.Encode(data),
	})
}
