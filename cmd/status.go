package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/spf13/cobra"
)

// heartbeatStaleAfter bounds how old a running instance's heartbeat can
// be before status treats it as not running. Set well above the
// orchestrator's one-minute risk-check interval to tolerate a slow tick.
const heartbeatStaleAfter = 3 * time.Minute

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the kill-switch state, open position count, and today's notional used",
	Long: `Reads the ledger and control state directly, without starting the
pipeline, so it is safe to run alongside a live instance.`,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := ledger.Open(ledger.Config{Path: cfg.DataSQLitePath, Logger: logger})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	control, err := store.ControlState(ctx)
	if err != nil {
		return fmt.Errorf("read control state: %w", err)
	}

	running := instanceRunning(control)

	openPositions, err := store.OpenPositionCount(ctx)
	if err != nil {
		return fmt.Errorf("count open positions: %w", err)
	}

	notionalUsed, err := store.TodayNotionalUsed(ctx)
	if err != nil {
		return fmt.Errorf("sum today's notional: %w", err)
	}

	fmt.Printf("instance:        %s\n", runningLabel(running))
	fmt.Printf("kill switch:     %s\n", killSwitchLabel(control.Halted, control.Reason))
	fmt.Printf("open positions:  %d\n", openPositions)
	fmt.Printf("notional today:  %.2f / %.2f\n", notionalUsed, cfg.RiskMaxDailyNotional)
	return nil
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "not running (no recent heartbeat)"
}

func killSwitchLabel(halted bool, reason string) string {
	if !halted {
		return "clear"
	}
	if reason == "" {
		return "TRIGGERED"
	}
	return fmt.Sprintf("TRIGGERED (%s)", reason)
}
