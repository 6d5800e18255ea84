package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OpportunitiesSummary is the aggregate view the report CLI command
// prints for the opportunities table.
type OpportunitiesSummary struct {
	Total      int
	Traded     int
	Skipped    int
	AvgEdge    float64
	AvgSumCost float64
	ByDecision map[string]int
}

// OpportunitiesSummary aggregates the opportunities table, optionally
// bounded to the trailing `since` window. A zero since means all time.
func (l *Ledger) OpportunitiesSummary(ctx context.Context, since time.Time) (OpportunitiesSummary, error) {
	whereClause, args := sinceClause(since, "created_at")

	var summary OpportunitiesSummary
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM opportunities"+whereClause, args...).Scan(&summary.Total); err != nil {
		return summary, fmt.Errorf("ledger: count opportunities: %w", err)
	}

	tradedArgs := append(append([]any{}, args...), "TRADE")
	tradedWhere := whereClause
	if tradedWhere == "" {
		tradedWhere = " WHERE decision = ?"
	} else {
		tradedWhere += " AND decision = ?"
	}
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM opportunities"+tradedWhere, tradedArgs...).Scan(&summary.Traded); err != nil {
		return summary, fmt.Errorf("ledger: count traded opportunities: %w", err)
	}
	summary.Skipped = summary.Total - summary.Traded

	var avgEdge, avgSumCost sql.NullFloat64
	edgeWhere := appendCondition(whereClause, "edge IS NOT NULL")
	if err := l.db.QueryRowContext(ctx, "SELECT AVG(edge) FROM opportunities"+edgeWhere, args...).Scan(&avgEdge); err != nil {
		return summary, fmt.Errorf("ledger: avg edge: %w", err)
	}
	costWhere := appendCondition(whereClause, "sum_cost IS NOT NULL")
	if err := l.db.QueryRowContext(ctx, "SELECT AVG(sum_cost) FROM opportunities"+costWhere, args...).Scan(&avgSumCost); err != nil {
		return summary, fmt.Errorf("ledger: avg sum cost: %w", err)
	}
	summary.AvgEdge = avgEdge.Float64
	summary.AvgSumCost = avgSumCost.Float64

	rows, err := l.db.QueryContext(ctx, "SELECT decision, COUNT(*) FROM opportunities"+whereClause+" GROUP BY decision", args...)
	if err != nil {
		return summary, fmt.Errorf("ledger: group by decision: %w", err)
	}
	defer rows.Close()

	summary.ByDecision = make(map[string]int)
	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			return summary, fmt.Errorf("ledger: scan decision row: %w", err)
		}
		summary.ByDecision[decision] = count
	}
	return summary, rows.Err()
}

// TradeSetsSummary is the aggregate view the report CLI command
// prints for the tradesets table.
type TradeSetsSummary struct {
	Total     int
	ByStatus  map[string]int
	TotalPnL  float64
	TotalFees float64
}

// TradeSetsSummary aggregates the tradesets table, optionally bounded
// to the trailing `since` window.
func (l *Ledger) TradeSetsSummary(ctx context.Context, since time.Time) (TradeSetsSummary, error) {
	whereClause, args := sinceClause(since, "created_at")

	var summary TradeSetsSummary
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tradesets"+whereClause, args...).Scan(&summary.Total); err != nil {
		return summary, fmt.Errorf("ledger: count tradesets: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM tradesets"+whereClause+" GROUP BY status", args...)
	if err != nil {
		return summary, fmt.Errorf("ledger: group by status: %w", err)
	}
	summary.ByStatus = make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return summary, fmt.Errorf("ledger: scan status row: %w", err)
		}
		summary.ByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, err
	}

	var pnl, fees sql.NullFloat64
	pnlWhere := appendCondition(whereClause, "realized_pnl IS NOT NULL")
	if err := l.db.QueryRowContext(ctx, "SELECT SUM(realized_pnl) FROM tradesets"+pnlWhere, args...).Scan(&pnl); err != nil {
		return summary, fmt.Errorf("ledger: sum realized pnl: %w", err)
	}
	feesWhere := appendCondition(whereClause, "total_fees IS NOT NULL")
	if err := l.db.QueryRowContext(ctx, "SELECT SUM(total_fees) FROM tradesets"+feesWhere, args...).Scan(&fees); err != nil {
		return summary, fmt.Errorf("ledger: sum total fees: %w", err)
	}
	summary.TotalPnL = pnl.Float64
	summary.TotalFees = fees.Float64
	return summary, nil
}

// OpenPositionCount counts tradesets that have filled but not yet
// resolved — the same population the execution engine's in-process
// open-position counter tracks, read here for the `status` CLI command
// which runs without the pipeline.
func (l *Ledger) OpenPositionCount(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tradesets WHERE status = ?`, "filled").Scan(&count); err != nil {
		return 0, fmt.Errorf("ledger: count open positions: %w", err)
	}
	return count, nil
}

// TodayNotionalUsed sums total_cost for tradesets created since the
// start of the current UTC day, the same proxy for the execution
// engine's in-process daily notional tracker.
func (l *Ledger) TodayNotionalUsed(ctx context.Context) (float64, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	var total sql.NullFloat64
	if err := l.db.QueryRowContext(ctx,
		`SELECT SUM(total_cost) FROM tradesets WHERE created_at >= ? AND total_cost IS NOT NULL`,
		startOfDay.Format(sqliteTimestampLayout)).Scan(&total); err != nil {
		return 0, fmt.Errorf("ledger: sum today's notional: %w", err)
	}
	return total.Float64, nil
}

func sinceClause(since time.Time, column string) (string, []any) {
	if since.IsZero() {
		return "", nil
	}
	return " WHERE " + column + " > ?", []any{since.UTC().Format(sqliteTimestampLayout)}
}

func appendCondition(whereClause, condition string) string {
	if whereClause == "" {
		return " WHERE " + condition
	}
	return whereClause + " AND " + condition
}
