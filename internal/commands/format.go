package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmynk/divvy/pkg/api"
)

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func date(unix int64) string {
	return time.Unix(unix, 0).Format("2006-01-02")
}

func printBalance(w io.Writer, b *api.Balance) {
	if b == nil {
		fmt.Fprintln(w, "Balance unavailable, run `divvyctl balance` to retry")
		return
	}
	fmt.Fprintln(w, b.Summary)
}

func printExpenses(w io.Writer, expenses []*api.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPAYER\tMERCHANT\tTOTAL\tOWED")
	for _, e := range expenses {
		owed := "-"
		if e.Debtor != "" && e.DebtAmount > 0 {
			owed = fmt.Sprintf("%s %s", e.Debtor, money(e.DebtAmount))
		}
		merchant := e.MerchantName
		if merchant == "" {
			merchant = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Id, date(e.OccurredAt), e.Payer, merchant, money(e.TotalAmount), owed)
	}
	return tw.Flush()
}

func printPayments(w io.Writer, payments []*api.Payment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tAMOUNT\tMETHOD\tNOTE")
	for _, p := range payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Id, date(p.OccurredAt), p.From, p.To, money(p.Amount), p.Method, p.Note)
	}
	return tw.Flush()
}

func printLineItems(w io.Writer, items []*api.LineItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLABEL\tAMOUNT\tOWNER\tRAW")
	for i, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i+1, item.Label, money(item.Amount), item.Owner, strings.TrimSpace(item.RawText))
	}
	return tw.Flush()
}
