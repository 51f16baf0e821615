package cli

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/app"
	"github.com/code-payments/code-escrow/pkg/escrow/client"
	"github.com/code-payments/code-escrow/pkg/metrics"
)

const lamportsPerSol = 1_000_000_000

var (
	demoInitializerKeypair string
	demoAcceptorKeypair    string
	demoDepositAmount      uint64
	demoExpectedAmount     uint64
	demoAirdropLamports    uint64
	demoDecimals           uint8
	demoLegacy             bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a complete swap between two parties",
	Long: `Funds an initializer and an acceptor, gives each a fresh mint and token
accounts, then has the initializer offer tokens of mint X for tokens of mint Y
and the acceptor take the offer. Runs against an in-process localnet unless
--rpc is set.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVar(&demoInitializerKeypair, "initializer", "", "initializer keypair file (default: generated)")
	demoCmd.Flags().StringVar(&demoAcceptorKeypair, "acceptor", "", "acceptor keypair file (default: generated)")
	demoCmd.Flags().Uint64Var(&demoDepositAmount, "deposit", 50, "amount of X the initializer offers")
	demoCmd.Flags().Uint64Var(&demoExpectedAmount, "expected", 30, "amount of Y the initializer expects")
	demoCmd.Flags().Uint64Var(&demoAirdropLamports, "airdrop", lamportsPerSol, "lamports airdropped to each party")
	demoCmd.Flags().Uint8Var(&demoDecimals, "decimals", 0, "decimals of both mints")
	demoCmd.Flags().BoolVar(&demoLegacy, "legacy", false, "use the legacy InitEscrow account layout")
}

type demoOutput struct {
	RunID     string `json:"run_id"`
	ProgramID string `json:"program_id"`

	MintX string `json:"mint_x"`
	MintY string `json:"mint_y"`

	Escrow            string `json:"escrow"`
	InitializeSig     string `json:"initialize_signature"`
	ExchangeSignature string `json:"exchange_signature"`

	Before client.Balances `json:"before"`
	After  client.Balances `json:"after"`
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx, trace := metrics.StartTrace(cmd.Context(), "escrow demo")
	if trace != nil {
		defer trace.End()
	}

	runID := uuid.New().String()
	log := logger("demo").WithField("run_id", runID)
	if trace != nil {
		trace.AddAttribute("run_id", runID)
	}

	initializer, err := keypairOrGenerate(demoInitializerKeypair)
	if err != nil {
		return err
	}
	acceptor, err := keypairOrGenerate(demoAcceptorKeypair)
	if err != nil {
		return err
	}

	env, err := newEnvironment(metrics.ProviderFromContext(ctx))
	if err != nil {
		return err
	}
	defer env.Close()

	log.WithField("program", base58.Encode(env.programID)).Info("running demo")

	res, err := env.client.RunDemo(ctx, &client.DemoArgs{
		Initializer:     initializer,
		Acceptor:        acceptor,
		AirdropLamports: demoAirdropLamports,
		Decimals:        demoDecimals,
		DepositAmount:   demoDepositAmount,
		ExpectedAmount:  demoExpectedAmount,
		Legacy:          demoLegacy,
	})
	if err != nil {
		if trace != nil {
			trace.OnError(err)
		}
		return err
	}

	return printJSON(cmd, &demoOutput{
		RunID:             runID,
		ProgramID:         base58.Encode(env.programID),
		MintX:             base58.Encode(res.MintX),
		MintY:             base58.Encode(res.MintY),
		Escrow:            base58.Encode(res.Escrow.Address),
		InitializeSig:     res.Escrow.Signature.String(),
		ExchangeSignature: res.ExchangeSignature.String(),
		Before:            res.Before,
		After:             res.After,
	})
}

func keypairOrGenerate(path string) (ed25519.PrivateKey, error) {
	if len(path) > 0 {
		return app.LoadKeypair(path)
	}

	_, key, err := ed25519.GenerateKey(nil)
	return key, err
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
