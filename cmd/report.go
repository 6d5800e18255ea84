package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print opportunity, tradeset, and risk-event summaries over a trailing window",
	RunE:  runReport,
}

//nolint:gochecknoglobals // the first three follow the risk controller's own check order
var reportedRiskKinds = []types.RiskEventKind{
	types.RiskEventPartialFill,
	types.RiskEventReject,
	types.RiskEventWSDisconnect,
	types.RiskEventRiskLimit,
	types.RiskEventExecutionError,
	types.RiskEventKillSwitch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("days", 1, "Trailing window, in days, to summarize")
}

func runReport(cmd *cobra.Command, args []string) error {
	days, err := cmd.Flags().GetInt("days")
	if err != nil || days <= 0 {
		return fmt.Errorf("--days must be a positive integer")
	}

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
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	opps, err := store.OpportunitiesSummary(ctx, since)
	if err != nil {
		return fmt.Errorf("summarize opportunities: %w", err)
	}
	tradesets, err := store.TradeSetsSummary(ctx, since)
	if err != nil {
		return fmt.Errorf("summarize tradesets: %w", err)
	}

	fmt.Printf("report: trailing %d day(s)\n\n", days)

	fmt.Println("opportunities:")
	fmt.Printf("  total:        %d\n", opps.Total)
	fmt.Printf("  traded:       %d\n", opps.Traded)
	fmt.Printf("  skipped:      %d\n", opps.Skipped)
	fmt.Printf("  avg edge:     %.4f\n", opps.AvgEdge)
	fmt.Printf("  avg sum cost: %.4f\n", opps.AvgSumCost)
	for decision, count := range opps.ByDecision {
		fmt.Printf("  %-22s %d\n", decision+":", count)
	}

	fmt.Println("\ntradesets:")
	fmt.Printf("  total:        %d\n", tradesets.Total)
	fmt.Printf("  realized pnl: %.4f\n", tradesets.TotalPnL)
	fmt.Printf("  total fees:   %.4f\n", tradesets.TotalFees)
	for status, count := range tradesets.ByStatus {
		fmt.Printf("  %-14s %d\n", status+":", count)
	}

	fmt.Println("\nrisk events:")
	for _, kind := range reportedRiskKinds {
		count, err := store.CountRiskEvents(ctx, kind, since)
		if err != nil {
			return fmt.Errorf("count risk events %q: %w", kind, err)
		}
		fmt.Printf("  %-16s %d\n", string(kind)+":", count)
	}

	return nil
}
