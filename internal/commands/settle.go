package commands

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

func newSettleCommand(run runner, opts *globalOptions) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Record a payment for the full outstanding balance",
		Long: `Record a payment that settles the balance in full.

The acting party comes from --as. With --method app-transfer-A the command
prints a deep link that opens the payment app with the amount filled in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.as == "" {
				return errors.New("--as is required to settle up")
			}
			req := &api.SettleUpRequest{Actor: opts.as, Method: method}

			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.SettleUp(ctx, connect.NewRequest(req))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				p := resp.Msg.Payment
				fmt.Fprintf(out, "Recorded payment %s (%s %s -> %s)\n", p.Id, money(p.Amount), p.From, p.To)
				if resp.Msg.DeepLink != "" {
					fmt.Fprintf(out, "Open: %s\n", resp.Msg.DeepLink)
				}
				printBalance(out, resp.Msg.Balance)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&method, "method", api.MethodManual, "app-transfer-A, app-transfer-B or manual")
	return cmd
}
