// Package ledger is the append-only SQLite audit trail: every
// opportunity the signal engine evaluates, every order placed, every
// fill reported, every tradeset's lifecycle, and every risk event
// observed. Fills go through a bounded queue drained by a dedicated
// writer goroutine; every other write runs synchronously on the
// caller's goroutine.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/biserd/completeset-arb/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the SQLite-backed store. All write methods are safe for
// concurrent use; database/sql serializes access to the single
// underlying file for us.
type Ledger struct {
	db     *sql.DB
	logger *zap.Logger

	writeQueue chan func(context.Context) error
	wg         sync.WaitGroup
}

// Config holds ledger configuration.
type Config struct {
	Path   string
	Logger *zap.Logger
}

// Open connects to (creating if necessary) the SQLite database at
// cfg.Path and ensures the schema exists.
func Open(cfg Config) (*Ledger, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}
	// SQLite only tolerates one writer at a time, so cap the pool at a
	// single connection; queued and synchronous writes share it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}

	l := &Ledger{
		db:         db,
		logger:     cfg.Logger,
		writeQueue: make(chan func(context.Context) error, 10000),
	}
	l.wg.Add(1)
	go l.writeLoop()

	return l, nil
}

func (l *Ledger) writeLoop() {
	defer l.wg.Done()
	ctx := context.Background()
	for fn := range l.writeQueue {
		if err := fn(ctx); err != nil {
			l.logger.Error("ledger-write-failed", zap.Error(err))
			WriteErrorsTotal.Inc()
		}
	}
}

func (l *Ledger) enqueue(fn func(context.Context) error) {
	select {
	case l.writeQueue <- fn:
	default:
		l.logger.Error("CRITICAL-ledger-write-queue-full-dropping-write",
			zap.Int("buffer-size", cap(l.writeQueue)))
		WritesDroppedTotal.Inc()
	}
}

// Close drains the write queue and closes the database.
func (l *Ledger) Close() error {
	close(l.writeQueue)
	l.wg.Wait()
	return l.db.Close()
}

// LogOpportunity records one signal evaluation, traded or not. It
// writes synchronously and returns the new row id.
func (l *Ledger) LogOpportunity(ctx context.Context, signal types.TradeSignal) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO opportunities
		(market_id, timestamp, yes_ask, no_ask, yes_size, no_size, sum_cost, edge, cost_buffer, decision, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.MarketID,
		float64(signal.Timestamp.UnixNano())/1e9,
		decimalPtrToFloat(signal.YesAsk),
		decimalPtrToFloat(signal.NoAsk),
		decimalPtrToFloat(signal.YesSize),
		decimalPtrToFloat(signal.NoSize),
		decimalPtrToFloat(signal.SumCost),
		decimalPtrToFloat(signal.Edge),
		mustFloat(signal.CostBuffer),
		string(signal.Decision),
		signal.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("ledger: log opportunity: %w", err)
	}
	return res.LastInsertId()
}

// CreateTradeSet inserts a new pending tradeset and returns its id.
func (l *Ledger) CreateTradeSet(ctx context.Context, marketID string) (int64, error) {
	res, err := l.db.ExecContext(ctx, `INSERT INTO tradesets (market_id, status) VALUES (?, 'pending')`, marketID)
	if err != nil {
		return 0, fmt.Errorf("ledger: create tradeset: %w", err)
	}
	return res.LastInsertId()
}

// TradeSetUpdate carries the subset of tradeset fields to update; nil
// fields are left unchanged, mirroring the teacher's partial-UPDATE
// pattern of building the SET clause from whichever arguments are set.
type TradeSetUpdate struct {
	Status            *types.TradeSetStatus
	YesOrderID        *string
	NoOrderID         *string
	YesCost           *float64
	NoCost            *float64
	TotalFees         *float64
	RealizedPnL       *float64
	ResolutionOutcome *string
}

// UpdateTradeSet applies a partial update to one tradeset row.
func (l *Ledger) UpdateTradeSet(ctx context.Context, id int64, update TradeSetUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.YesOrderID != nil {
		sets = append(sets, "yes_order_id = ?")
		args = append(args, *update.YesOrderID)
	}
	if update.NoOrderID != nil {
		sets = append(sets, "no_order_id = ?")
		args = append(args, *update.NoOrderID)
	}
	if update.YesCost != nil {
		sets = append(sets, "yes_cost = ?")
		args = append(args, *update.YesCost)
	}
	if update.NoCost != nil {
		sets = append(sets, "no_cost = ?")
		args = append(args, *update.NoCost)
	}
	if update.YesCost != nil && update.NoCost != nil {
		sets = append(sets, "total_cost = ?")
		args = append(args, *update.YesCost+*update.NoCost)
	}
	if update.TotalFees != nil {
		sets = append(sets, "total_fees = ?")
		args = append(args, *update.TotalFees)
	}
	if update.RealizedPnL != nil {
		sets = append(sets, "realized_pnl = ?")
		args = append(args, *update.RealizedPnL)
	}
	if update.ResolutionOutcome != nil {
		sets = append(sets, "resolution_outcome = ?")
		args = append(args, *update.ResolutionOutcome)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	args = append(args, id)

	query := "UPDATE tradesets SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ledger: update tradeset %d: %w", id, err)
	}
	return nil
}

// LogOrder records a newly placed order.
func (l *Ledger) LogOrder(ctx context.Context, tradesetID int64, order types.Order) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, tradeset_id, market_id, token_id, side, order_type, price, size, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, tradesetID, order.MarketID, order.TokenID,
		string(order.Side), string(order.Type), mustFloat(order.Price), mustFloat(order.Size), string(order.Status),
	)
	if err != nil {
		return fmt.Errorf("ledger: log order %s: %w", order.OrderID, err)
	}
	return nil
}

// OrderUpdate carries the subset of order fields to update.
type OrderUpdate struct {
	Status       *types.OrderStatus
	FilledSize   *float64
	AvgFillPrice *float64
	Fee          *float64
}

// UpdateOrder applies a partial update to one order row, keyed by the
// venue's order id.
func (l *Ledger) UpdateOrder(ctx context.Context, orderID string, update OrderUpdate) error {
	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.FilledSize != nil {
		sets = append(sets, "filled_size = ?")
		args = append(args, *update.FilledSize)
	}
	if update.AvgFillPrice != nil {
		sets = append(sets, "avg_fill_price = ?")
		args = append(args, *update.AvgFillPrice)
	}
	if update.Fee != nil {
		sets = append(sets, "fee = ?")
		args = append(args, *update.Fee)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	args = append(args, orderID)

	query := "UPDATE orders SET " + strings.Join(sets, ", ") + " WHERE order_id = ?"
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ledger: update order %s: %w", orderID, err)
	}
	return nil
}

// LogFill records a fill. Called from the adapter's fill callback, so
// it goes through the async queue rather than blocking the caller.
func (l *Ledger) LogFill(ctx context.Context, fill types.Fill) {
	l.enqueue(func(ctx context.Context) error {
		_, err := l.db.ExecContext(ctx, `
			INSERT INTO fills (fill_id, order_id, price, size, fee, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			fill.FillID, fill.OrderID, mustFloat(fill.Price), mustFloat(fill.Size), mustFloat(fill.Fee),
			float64(fill.Timestamp.UnixNano())/1e9,
		)
		return err
	})
}

// LogRiskEvent records a risk event. Satisfies risk.EventCounter.
func (l *Ledger) LogRiskEvent(ctx context.Context, event types.RiskEvent) error {
	var details sql.NullString
	if event.Details != "" {
		encoded, err := json.Marshal(map[string]string{"reason": event.Details})
		if err != nil {
			return fmt.Errorf("ledger: marshal risk event details: %w", err)
		}
		details = sql.NullString{String: string(encoded), Valid: true}
	}

	var marketID sql.NullString
	if event.MarketID != "" {
		marketID = sql.NullString{String: event.MarketID, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO risk_events (event_type, market_id, details) VALUES (?, ?, ?)`,
		string(event.Kind), marketID, details,
	)
	if err != nil {
		return fmt.Errorf("ledger: log risk event: %w", err)
	}
	return nil
}

// CountRiskEvents counts events of one kind since the given time.
// Satisfies risk.EventCounter.
func (l *Ledger) CountRiskEvents(ctx context.Context, kind types.RiskEventKind, since time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM risk_events WHERE event_type = ? AND created_at > ?`,
		string(kind), since.UTC().Format(sqliteTimestampLayout),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ledger: count risk events: %w", err)
	}
	return count, nil
}

// sqliteTimestampLayout is the text form of SQLite's CURRENT_TIMESTAMP
// (UTC), the default of every created_at column. Time bounds compared
// against created_at are formatted the same way so the text comparison
// orders correctly.
const sqliteTimestampLayout = "2006-01-02 15:04:05"

func decimalPtrToFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
