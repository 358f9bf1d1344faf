package commands

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

func newPaymentsCommand(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"payment"},
		Short:   "List, add and delete payments",
	}
	cmd.AddCommand(
		newPaymentsListCommand(run),
		newPaymentsAddCommand(run),
		newPaymentsDeleteCommand(run),
	)
	return cmd
}

func newPaymentsListCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.ListPayments(ctx, connect.NewRequest(&api.ListPaymentsRequest{}))
				if err != nil {
					return err
				}
				return printPayments(cmd.OutOrStdout(), resp.Msg.Payments)
			})
		},
	}
}

func newPaymentsAddCommand(run runner) *cobra.Command {
	var (
		from     string
		to       string
		amount   float64
		method   string
		note     string
		expenses []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a payment between the parties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &api.CreatePaymentRequest{
				Amount:            amount,
				From:              strings.ToUpper(from),
				To:                strings.ToUpper(to),
				Method:            method,
				RelatedExpenseIds: expenses,
				Note:              note,
			}
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.CreatePayment(ctx, connect.NewRequest(req))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recorded payment %s (%s %s -> %s)\n",
					resp.Msg.Payment.Id, money(resp.Msg.Payment.Amount), resp.Msg.Payment.From, resp.Msg.Payment.To)
				printBalance(out, resp.Msg.Balance)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "paying party (required)")
	cmd.Flags().StringVar(&to, "to", "", "receiving party (required)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount paid (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&method, "method", api.MethodManual, "app-transfer-A, app-transfer-B or manual")
	cmd.Flags().StringVar(&note, "note", "", "memo stored with the payment")
	cmd.Flags().StringSliceVar(&expenses, "expense", nil, "related expense IDs")

	return cmd
}

func newPaymentsDeleteCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payment recorded by mistake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.DeletePayment(ctx, connect.NewRequest(&api.DeletePaymentRequest{PaymentId: args[0]}))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted payment %s\n", args[0])
				printBalance(out, resp.Msg.Balance)
				return nil
			})
		},
	}
}
