// Package commands implements the divvyctl command line.
package commands

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/divvy/internal/app"
	"github.com/mmynk/divvy/internal/buildinfo"
	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/middleware"
	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
	"github.com/mmynk/divvy/pkg/logging"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	server  string
	envFile string
	as      string
	verbose bool
}

// opener returns the ledger to talk to and a function releasing it.
type opener func(ctx context.Context, opts *globalOptions) (apiconnect.LedgerServiceClient, func() error, error)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openLedger)
}

func newRootCommand(open opener) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "divvyctl",
		Short:   "Shared expense ledger for two",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logging.SetupWith(level, logging.Text)
			if opts.as != "" {
				party, err := models.ParseParty(strings.ToUpper(opts.as))
				if err != nil {
					return err
				}
				opts.as = string(party)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "ledger server URL; when empty the configured store is opened directly")
	flags.StringVar(&opts.envFile, "env", "", "path to a .env file")
	flags.StringVar(&opts.as, "as", "", "acting party (A or B)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	run := func(cmd *cobra.Command, fn func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ledger, closeFn, err := open(ctx, opts)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, ledger)
	}

	rootCmd.AddCommand(
		newBalanceCommand(run),
		newExpensesCommand(run),
		newPaymentsCommand(run),
		newSettleCommand(run, opts),
		newReceiptCommand(run),
	)

	return rootCmd
}

// runner opens the ledger, calls fn and releases the ledger.
type runner func(cmd *cobra.Command, fn func(ctx context.Context, ledger apiconnect.LedgerServiceClient) error) error

// openLedger connects to a server when --server is set, otherwise it opens
// the configured store in-process.
func openLedger(ctx context.Context, opts *globalOptions) (apiconnect.LedgerServiceClient, func() error, error) {
	if opts.server != "" {
		client := apiconnect.NewLedgerServiceClient(
			http.DefaultClient,
			opts.server,
			connect.WithInterceptors(middleware.SetParty(models.Party(opts.as))),
		)
		return client, func() error { return nil }, nil
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := app.NewLedger(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return ledger.Service, ledger.Close, nil
}
