package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "completeset-arb",
	Short: "Complete-set arbitrage bot for binary prediction markets",
	Long: `completeset-arb watches binary prediction markets for the moment
the YES and NO ask prices sum to less than one, buys both legs to lock
in a riskless complete set, and tracks every decision in an append-only
SQLite ledger.

The bot subscribes to a venue's orderbooks over WebSocket, evaluates
every book update against a minimum-edge threshold, and executes
paired orders in paper or live mode behind a latching risk controller.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
