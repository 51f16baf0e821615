package cli

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/code-escrow/pkg/app"
	escrow_program "github.com/code-payments/code-escrow/pkg/solana/escrow"
)

var (
	// Global flags
	configFile string

	config *app.BaseConfig

	// Flushes the metrics provider once the command completes
	shutdown = func() {}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Two-party token swaps through an on-chain escrow",
	Long: `escrow drives the escrow program: an initializer locks tokens behind a
program-derived custody authority together with the amount they expect in
return, and an acceptor completes the swap in a single atomic exchange.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := app.LoadConfig(configFile)
		if err != nil {
			return err
		}
		config = loaded

		ctx, flush, err := app.Setup(cmd.Context(), config)
		if err != nil {
			return err
		}
		shutdown = flush
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

// Execute adds all child commands to the root command and runs it. It is
// called by main.main() and only needs to happen once.
func Execute() {
	ctx, cancel := app.WithShutdownSignals(context.Background())
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "configuration file path")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("rpc", "", "solana rpc endpoint or cluster name such as devnet (default: in-process localnet)")
	rootCmd.PersistentFlags().String("program-id", "", "escrow program address")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("solana_rpc_endpoint", rootCmd.PersistentFlags().Lookup("rpc"))
	_ = viper.BindPFlag("program_id", rootCmd.PersistentFlags().Lookup("program-id"))
}

func programID() (ed25519.PublicKey, error) {
	if config == nil || len(config.ProgramID) == 0 {
		return escrow_program.PROGRAM_ID, nil
	}
	return decodeKey(config.ProgramID)
}

func decodeKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid address %s", value)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid address %s", value)
	}
	return decoded, nil
}

func logger(command string) *logrus.Entry {
	return logrus.StandardLogger().WithField("type", "cli/"+command)
}
