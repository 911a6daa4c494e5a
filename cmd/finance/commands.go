package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohamedammareid/finance/internal/config"
	"github.com/mohamedammareid/finance/internal/ledger"
	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/pkg/trading"
)

// NewRootCmd builds the finance command tree.
func NewRootCmd(log *logger.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finance",
		Short: "Paper-trading service",
		Long: `finance lets registered users buy and sell stocks at live quoted prices
with virtual cash, and reports their holdings and trade history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(log))
	rootCmd.AddCommand(newMigrateCmd(log))
	rootCmd.AddCommand(newQuoteCmd(log))

	return rootCmd
}

func newServeCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the trade event dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(nil, log)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func newMigrateCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(nil, log)
			if err != nil {
				return err
			}

			store, err := ledger.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("migrate ledger: %w", err)
			}
			defer store.Close()

			log.Info("ledger schema is up to date", logger.String("db_driver", cfg.DBDriver))
			return nil
		},
	}
}

func newQuoteCmd(log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Look up the current price of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(nil, log)
			if err != nil {
				return err
			}

			provider, err := newQuoteProvider(cfg, log)
			if err != nil {
				return err
			}

			q, err := provider.Lookup(cmd.Context(), trading.NormalizeSymbol(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s as of %s\n",
				q.Name, q.Symbol, trading.DisplayUSD(q.Price), q.AsOf.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}
