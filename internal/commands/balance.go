package commands

import (
	"context"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

func newBalanceCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show who owes whom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.GetBalance(ctx, connect.NewRequest(&api.GetBalanceRequest{}))
				if err != nil {
					return err
				}
				printBalance(cmd.OutOrStdout(), resp.Msg.Balance)
				return nil
			})
		},
	}
}
