package cmd

import (
	"fmt"

	"github.com/biserd/completeset-arb/internal/app"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the complete-set arbitrage bot, which will:
1. Resolve the configured markets (or auto-discover active ones)
2. Subscribe to their orderbooks via WebSocket
3. Evaluate every book update for a tradeable edge
4. Execute paired orders in paper or live mode

--paper and --live override PAPER_MODE from the environment; without
either flag the configured value is used.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("paper", false, "Force paper trading mode, overriding PAPER_MODE")
	runCmd.Flags().Bool("live", false, "Force live trading mode, overriding PAPER_MODE")
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	paperFlag, _ := cmd.Flags().GetBool("paper")
	liveFlag, _ := cmd.Flags().GetBool("live")
	if paperFlag && liveFlag {
		return fmt.Errorf("--paper and --live are mutually exclusive")
	}
	if paperFlag {
		cfg.PaperMode = true
	}
	if liveFlag {
		cfg.PaperMode = false
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{Markets: cfg.Markets})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
