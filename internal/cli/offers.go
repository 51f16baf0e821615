package cli

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/database/query"
)

var (
	offersLimit  uint64
	offersCursor string
	offersOrder  string
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Browse the offer book",
}

var offersOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "List offers waiting for an acceptor",
	Args:  cobra.NoArgs,
	RunE:  runOffersOpen,
}

var offersCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count offers by state",
	Args:  cobra.NoArgs,
	RunE:  runOffersCount,
}

var showCmd = &cobra.Command{
	Use:   "show <escrow>",
	Short: "Show the on-chain state of an escrow",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(offersCmd)
	rootCmd.AddCommand(showCmd)
	offersCmd.AddCommand(offersOpenCmd)
	offersCmd.AddCommand(offersCountCmd)

	offersOpenCmd.Flags().Uint64Var(&offersLimit, "limit", 100, "maximum number of offers")
	offersOpenCmd.Flags().StringVar(&offersCursor, "cursor", "", "resume after the offer with this cursor")
	offersOpenCmd.Flags().StringVar(&offersOrder, "order", "asc", "sort order (asc, desc)")
}

type offerOutput struct {
	Id             uint64 `json:"id"`
	Escrow         string `json:"escrow"`
	Initializer    string `json:"initializer"`
	DepositMint    string `json:"deposit_mint"`
	DepositAmount  uint64 `json:"deposit_amount"`
	ReceiveMint    string `json:"receive_mint"`
	ExpectedAmount uint64 `json:"expected_amount"`
	Cursor         string `json:"cursor"`
}

func runOffersOpen(cmd *cobra.Command, _ []string) error {
	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.db == nil {
		return errors.New("the offer book requires postgres to be configured")
	}

	order, err := query.ToOrdering(offersOrder)
	if err != nil {
		return err
	}

	opts := []query.Option{
		query.WithLimit(offersLimit),
		query.WithDirection(order),
	}
	if len(offersCursor) > 0 {
		cursor, err := query.CursorFromBase58(offersCursor)
		if err != nil {
			return err
		}
		opts = append(opts, query.WithCursor(cursor))
	}

	records, err := env.client.GetOpenOffers(cmd.Context(), opts...)
	if err != nil && err != offer.ErrNotFound {
		return err
	}

	output := make([]*offerOutput, len(records))
	for i, record := range records {
		output[i] = &offerOutput{
			Id:             record.Id,
			Escrow:         record.Escrow,
			Initializer:    record.Initializer,
			DepositMint:    record.DepositMint,
			DepositAmount:  record.DepositAmount,
			ReceiveMint:    record.ReceiveMint,
			ExpectedAmount: record.ExpectedAmount,
			Cursor:         query.ToCursor(record.Id).ToBase58(),
		}
	}
	return printJSON(cmd, output)
}

func runOffersCount(cmd *cobra.Command, _ []string) error {
	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.db == nil {
		return errors.New("the offer book requires postgres to be configured")
	}

	counts := make(map[string]uint64)
	for _, state := range []offer.State{offer.StateInitialized, offer.StateExchanged} {
		count, err := env.offers.CountByState(cmd.Context(), state)
		if err != nil {
			return err
		}
		counts[state.String()] = count
	}
	return printJSON(cmd, counts)
}

func runShow(cmd *cobra.Command, args []string) error {
	address, err := decodeKey(args[0])
	if err != nil {
		return err
	}

	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}
	defer env.Close()

	state, err := env.client.GetEscrow(cmd.Context(), address)
	if err != nil {
		return err
	}

	return printJSON(cmd, map[string]interface{}{
		"escrow":                base58.Encode(address),
		"initializer":           base58.Encode(state.InitializerPubkey),
		"temp_token_account":    base58.Encode(state.TempTokenAccountPubkey),
		"receive_token_account": base58.Encode(state.InitializerTokenToReceiveAccountPubkey),
		"expected_amount":       state.ExpectedAmount,
	})
}
