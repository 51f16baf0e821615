package cli

import (
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
)

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Print the custody authority of the escrow program",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		program, err := programID()
		if err != nil {
			return err
		}

		authority, bump, err := escrow_program.GetAuthorityAddress(&escrow_program.GetAuthorityAddressArgs{
			Program: program,
		})
		if err != nil {
			return err
		}

		return printJSON(cmd, map[string]interface{}{
			"program_id": base58.Encode(program),
			"authority":  base58.Encode(authority),
			"bump":       bump,
		})
	},
}

func init() {
	rootCmd.AddCommand(authorityCmd)
}
