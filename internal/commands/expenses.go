package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

func newExpensesCommand(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense"},
		Short:   "List, add and delete expenses",
	}
	cmd.AddCommand(
		newExpensesListCommand(run),
		newExpensesAddCommand(run),
		newExpensesDeleteCommand(run),
	)
	return cmd
}

func newExpensesListCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
				if err != nil {
					return err
				}
				return printExpenses(cmd.OutOrStdout(), resp.Msg.Expenses)
			})
		},
	}
}

func newExpensesAddCommand(run runner) *cobra.Command {
	var (
		payer    string
		items    []string
		tax      float64
		tip      float64
		total    float64
		merchant string
		notes    string
		manual   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Long: `Record an expense paid by one party.

Items are given as LABEL:AMOUNT:OWNER where OWNER is A, B or Shared.

Example:
  divvyctl expenses add --payer A --item "Groceries:10.00:Shared" --item "Shirt:20:B" --tax 2.40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lineItems := make([]*api.LineItem, 0, len(items))
			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return err
				}
				lineItems = append(lineItems, item)
			}

			req := &api.CreateExpenseRequest{
				Payer:        strings.ToUpper(payer),
				LineItems:    lineItems,
				Tax:          tax,
				Tip:          tip,
				MerchantName: merchant,
				Notes:        notes,
				Manual:       manual,
			}
			if cmd.Flags().Changed("total") {
				req.TotalAmount = &total
			}

			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.CreateExpense(ctx, connect.NewRequest(req))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recorded expense %s (%s)\n", resp.Msg.Expense.Id, money(resp.Msg.Expense.TotalAmount))
				printBalance(out, resp.Msg.Balance)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&payer, "payer", "", "party who paid (A or B, required)")
	_ = cmd.MarkFlagRequired("payer")
	cmd.Flags().StringArrayVar(&items, "item", nil, "line item as LABEL:AMOUNT:OWNER (repeatable)")
	cmd.Flags().Float64Var(&tax, "tax", 0, "tax amount")
	cmd.Flags().Float64Var(&tip, "tip", 0, "tip amount")
	cmd.Flags().Float64Var(&total, "total", 0, "receipt total, checked against items + tax + tip")
	cmd.Flags().StringVar(&merchant, "merchant", "", "merchant name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	cmd.Flags().BoolVar(&manual, "manual", false, "allow an expense without items")

	return cmd
}

// parseItem reads LABEL:AMOUNT:OWNER. The label may itself contain colons.
func parseItem(raw string) (*api.LineItem, error) {
	ownerAt := strings.LastIndex(raw, ":")
	if ownerAt < 0 {
		return nil, fmt.Errorf("item %q: want LABEL:AMOUNT:OWNER", raw)
	}
	amountAt := strings.LastIndex(raw[:ownerAt], ":")
	if amountAt < 0 {
		return nil, fmt.Errorf("item %q: want LABEL:AMOUNT:OWNER", raw)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(raw[amountAt+1:ownerAt]), 64)
	if err != nil {
		return nil, fmt.Errorf("item %q: invalid amount: %w", raw, err)
	}
	owner := strings.TrimSpace(raw[ownerAt+1:])
	if strings.EqualFold(owner, api.OwnerShared) {
		owner = api.OwnerShared
	} else {
		owner = strings.ToUpper(owner)
	}

	label := strings.TrimSpace(raw[:amountAt])
	return &api.LineItem{RawText: label, Label: label, Amount: amount, Owner: owner}, nil
}

func newExpensesDeleteCommand(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense recorded by mistake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error {
				resp, err := ledger.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseId: args[0]}))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted expense %s\n", args[0])
				printBalance(out, resp.Msg.Balance)
				return nil
			})
		},
	}
}
