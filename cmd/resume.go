package cmd

import (
	"context"
	"fmt"

	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Clear the kill switch on a running instance",
	Long: `Clears the control row's halt request, whether it was latched by a
prior halt command or by the risk controller's own thresholds. If no
instance appears to be running, reports that there is nothing to resume.`,
	RunE: runResume,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
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
		fmt.Println("no running instance found, nothing to resume")
		return nil
	}
	if !control.Halted {
		fmt.Println("kill switch is already clear")
		return nil
	}

	if err := store.RequestResume(ctx); err != nil {
		return fmt.Errorf("request resume: %w", err)
	}

	fmt.Println("resume requested, the running instance will clear its latch on its next risk check")
	return nil
}
