package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var haltCmd = &cobra.Command{
	Use:   "halt",
	Short: "Latch the kill switch on a running instance",
	Long: `Writes a halt request to the control row a running instance's risk
controller polls. If no instance appears to be running (no recent
heartbeat), reports that there is nothing to halt rather than erroring.`,
	RunE: runHalt,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(haltCmd)
	haltCmd.Flags().String("reason", "", "Reason recorded alongside the halt request")
}

func runHalt(cmd *cobra.Command, args []string) error {
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
	if !instanceRunning(control) {
		fmt.Println("no running instance found, nothing to halt")
		return nil
	}

	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		reason = "operator halt via CLI"
	}
	if err := store.RequestHalt(ctx, reason); err != nil {
		return fmt.Errorf("request halt: %w", err)
	}

	fmt.Println("halt requested, the running instance will latch on its next risk check")
	return nil
}

func instanceRunning(control ledger.ControlState) bool {
	return !control.HeartbeatAt.IsZero() && time.Since(control.HeartbeatAt) < heartbeatStaleAfter
}
