package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

func newReceiptCommand(run runner) *cobra.Command {
	var payer, notes string

	cmd := &cobra.Command{
		Use:   "receipt <image.jpg>",
		Short: "Draft line items from a receipt photo",
		Long: `Send a receipt photo for analysis and print the drafted line items.

Nothing is recorded. Review the owners and record the expense with
"divvyctl expenses add".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading receipt: %w", err)
			}
			req := &api.AnalyzeReceiptRequest{
				Image:         base64.StdEncoding.EncodeToString(data),
				PayerIdentity: strings.ToUpper(payer),
				Notes:         notes,
			}

			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.AnalyzeReceipt(ctx, connect.NewRequest(req))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Msg.MerchantName != "" {
					fmt.Fprintln(out, resp.Msg.MerchantName)
				}
				if err := printLineItems(out, resp.Msg.LineItems); err != nil {
					return err
				}
				fmt.Fprintf(out, "Tax %s  Tip %s  Total %s\n",
					money(resp.Msg.Tax), money(resp.Msg.Tip), money(resp.Msg.ReportedTotal))
				if resp.Msg.Warning != "" {
					fmt.Fprintf(out, "Warning: %s\n", resp.Msg.Warning)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&payer, "payer", "", "party who paid (A or B, required)")
	_ = cmd.MarkFlagRequired("payer")
	cmd.Flags().StringVar(&notes, "notes", "", "hints for the analyzer, e.g. \"the wine is B's\"")
	return cmd
}
