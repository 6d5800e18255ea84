// Package execution implements the paired-order execution state
// machine: given a tradeable signal, it places the YES and NO legs,
// waits for both to fill, and recovers from partial fills by
// cancelling whatever is left open. Legs are always placed YES first,
// then NO, sequentially and never concurrently.
package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/internal/signal"
	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var one = decimal.NewFromInt(1)

// Ledger is the subset of *ledger.Ledger the execution engine depends
// on. Defined locally so tests can substitute a double without
// touching a real database, matching the interface-at-the-point-of-use
// pattern used by the risk controller and the storage layer.
type Ledger interface {
	CreateTradeSet(ctx context.Context, marketID string) (int64, error)
	UpdateTradeSet(ctx context.Context, id int64, update ledger.TradeSetUpdate) error
	LogOrder(ctx context.Context, tradesetID int64, order types.Order) error
	LogRiskEvent(ctx context.Context, event types.RiskEvent) error
	CountRiskEvents(ctx context.Context, kind types.RiskEventKind, since time.Time) (int, error)
}

// Result is the outcome of one execute-signal call.
type Result struct {
	Success     bool
	TradeSetID  int64
	YesOrder    *types.Order
	NoOrder     *types.Order
	RealizedPnL *float64
	Error       string
}

// Config holds execution engine configuration.
type Config struct {
	Adapter           adapter.Adapter
	SignalEngine      *signal.Engine
	Ledger            Ledger
	OrderSize         decimal.Decimal
	MaxDailyNotional  decimal.Decimal
	MaxOpenPositions  int
	HaltOnPartialFill bool
	OrderTimeout      time.Duration
	PollInterval      time.Duration // fixed-cadence poll during WAITING_FILLS, not a backoff
	CooldownDuration  time.Duration
	Paper             bool
	Logger            *zap.Logger
	Clock             func() time.Time

	// Same rolling-hour thresholds the kill switch polls, re-checked
	// synchronously here as a pre-trade gate so a burst of signals in
	// the window between kill-switch poll ticks can't slip through.
	MaxPartialFillsPerHour  int
	MaxRejectsPerHour       int
	MaxWSDisconnectsPerHour int
}

// Engine is the paired-order execution state machine. One Engine
// serves every market; per-market state lives in the `state` map, but
// placement itself has no market-level concurrency guard beyond the
// signal engine's in-flight marker, matching the single-pipeline-task
// model: only one signal is ever being executed at a time.
type Engine struct {
	cfg Config

	mu            sync.Mutex
	state         map[string]types.ExecutionState
	halted        bool
	dailyNotional decimal.Decimal
	openPositions int
}

// New constructs an Engine. If cfg.Clock is nil, time.Now is used.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Engine{
		cfg:           cfg,
		state:         make(map[string]types.ExecutionState),
		dailyNotional: decimal.Zero,
	}
}

// IsHalted reports whether execution is currently halted.
func (e *Engine) IsHalted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

// Halt stops all future executions until Resume is called.
func (e *Engine) Halt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.halted = true
	e.cfg.Logger.Warn("execution-halted")
}

// Resume lifts a halt.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.halted = false
	e.cfg.Logger.Info("execution-resumed")
}

// State returns the current execution state for a market, IDLE if
// none has ever been set.
func (e *Engine) State(marketID string) types.ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.state[marketID]; ok {
		return s
	}
	return types.ExecIdle
}

func (e *Engine) setState(marketID string, s types.ExecutionState) {
	e.mu.Lock()
	e.state[marketID] = s
	e.mu.Unlock()
	StateTransitionsTotal.WithLabelValues(string(s)).Inc()
}

// checkRiskLimits mirrors the pre-trade gate the original executor
// runs before ever touching the adapter: daily notional cap, open
// position cap, and the same rolling-hour event counts the kill
// switch itself watches.
func (e *Engine) checkRiskLimits(ctx context.Context, orderSize, totalPrice decimal.Decimal) string {
	notional := orderSize.Mul(totalPrice)

	e.mu.Lock()
	projected := e.dailyNotional.Add(notional)
	openPositions := e.openPositions
	e.mu.Unlock()

	if !e.cfg.MaxDailyNotional.IsZero() && projected.GreaterThan(e.cfg.MaxDailyNotional) {
		return fmt.Sprintf("would exceed daily notional limit (%s > %s)", projected, e.cfg.MaxDailyNotional)
	}
	if e.cfg.MaxOpenPositions > 0 && openPositions >= e.cfg.MaxOpenPositions {
		return fmt.Sprintf("at max open positions (%d)", openPositions)
	}

	since := e.cfg.Clock().Add(-time.Hour)
	if e.cfg.MaxPartialFillsPerHour > 0 {
		if n, err := e.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventPartialFill, since); err == nil && n >= e.cfg.MaxPartialFillsPerHour {
			return fmt.Sprintf("partial fills in the last hour at limit (%d)", n)
		}
	}
	if e.cfg.MaxRejectsPerHour > 0 {
		if n, err := e.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventReject, since); err == nil && n >= e.cfg.MaxRejectsPerHour {
			return fmt.Sprintf("rejects in the last hour at limit (%d)", n)
		}
	}
	if e.cfg.MaxWSDisconnectsPerHour > 0 {
		if n, err := e.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventWSDisconnect, since); err == nil && n >= e.cfg.MaxWSDisconnectsPerHour {
			return fmt.Sprintf("ws disconnects in the last hour at limit (%d)", n)
		}
	}
	return ""
}

// ExecuteSignal runs the full state machine for one tradeable signal.
// Every exit path (success, failure, partial fill) flows through the
// same cooldown/clear-in-flight cleanup before returning, matching the
// original's try/finally structure.
func (e *Engine) ExecuteSignal(ctx context.Context, sig types.TradeSignal, market types.MarketBook) Result {
	marketID := sig.MarketID

	if e.IsHalted() {
		e.cfg.Logger.Info("execution-halted-skipping-signal", zap.String("market-id", marketID))
		return Result{Success: false, Error: "execution halted"}
	}
	if !sig.IsTradeable() {
		return Result{Success: false, Error: fmt.Sprintf("signal not tradeable: %s", sig.Reason)}
	}

	orderSize := e.cfg.OrderSize
	totalPrice := sig.YesAsk.Add(*sig.NoAsk)

	if reason := e.checkRiskLimits(ctx, orderSize, totalPrice); reason != "" {
		e.cfg.Logger.Warn("risk-limit-hit", zap.String("market-id", marketID), zap.String("reason", reason))
		_ = e.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{Kind: types.RiskEventRiskLimit, MarketID: marketID, Details: reason, CreatedAt: e.cfg.Clock()})
		return Result{Success: false, Error: reason}
	}

	e.setState(marketID, types.ExecSignalDetected)
	e.cfg.SignalEngine.SetInFlight(marketID)

	defer func() {
		e.cfg.SignalEngine.ClearInFlight(marketID)
		e.cfg.SignalEngine.SetCooldown(marketID, e.cfg.CooldownDuration)
		e.setState(marketID, types.ExecCooldown)
	}()

	tradesetID, err := e.cfg.Ledger.CreateTradeSet(ctx, marketID)
	if err != nil {
		e.setState(marketID, types.ExecFailed)
		return Result{Success: false, Error: fmt.Sprintf("create tradeset: %v", err)}
	}

	e.setState(marketID, types.ExecPlacingOrders)

	start := e.cfg.Clock()
	mode := "live"
	if e.cfg.Paper {
		mode = "paper"
	}

	var result Result
	if e.cfg.Paper {
		result = e.executePaper(ctx, marketID, market, sig, orderSize, tradesetID)
	} else {
		result = e.executeLive(ctx, marketID, market, sig, orderSize, tradesetID)
	}
	ExecutionDurationSeconds.Observe(e.cfg.Clock().Sub(start).Seconds())

	if result.Success {
		e.setState(marketID, types.ExecSuccess)
		e.mu.Lock()
		e.dailyNotional = e.dailyNotional.Add(orderSize.Mul(totalPrice))
		e.openPositions++
		e.mu.Unlock()
		TradesTotal.WithLabelValues(mode, "success").Inc()
		if result.RealizedPnL != nil {
			ProfitRealizedUSD.WithLabelValues(mode).Add(*result.RealizedPnL)
		}
	} else {
		e.setState(marketID, types.ExecFailed)
		TradesTotal.WithLabelValues(mode, "failed").Inc()
		ExecutionErrorsByType.WithLabelValues(classifyError(result.Error)).Inc()
	}

	return result
}

// classifyError buckets a free-form execution error string into a
// small label set for the errors-by-type metric.
func classifyError(msg string) string {
	switch {
	case msg == "":
		return "unknown"
	case strings.Contains(msg, "rejected"):
		return "order_rejected"
	case strings.Contains(msg, "partial fill"):
		return "partial_fill"
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "risk"):
		return "risk_limit"
	default:
		return "other"
	}
}

// executePaper simulates both legs filling immediately at the quoted
// ask, without touching the adapter at all.
func (e *Engine) executePaper(ctx context.Context, marketID string, market types.MarketBook, sig types.TradeSignal, orderSize decimal.Decimal, tradesetID int64) Result {
	now := e.cfg.Clock()

	yesOrderID := "paper-yes-" + uuid.New().String()[:8]
	noOrderID := "paper-no-" + uuid.New().String()[:8]
	feeRate := e.cfg.Adapter.FeeRate()

	yesOrder := types.Order{
		OrderID: yesOrderID, MarketID: marketID, TokenID: market.YesToken.TokenID,
		Side: types.OrderSideBuy, Type: types.OrderTypeLimit,
		Price: *sig.YesAsk, Size: orderSize, Status: types.OrderStatusFilled,
		FilledSize: orderSize, AvgFillPrice: *sig.YesAsk,
		Fee: orderSize.Mul(*sig.YesAsk).Mul(feeRate), CreatedAt: now, UpdatedAt: now,
	}
	noOrder := types.Order{
		OrderID: noOrderID, MarketID: marketID, TokenID: market.NoToken.TokenID,
		Side: types.OrderSideBuy, Type: types.OrderTypeLimit,
		Price: *sig.NoAsk, Size: orderSize, Status: types.OrderStatusFilled,
		FilledSize: orderSize, AvgFillPrice: *sig.NoAsk,
		Fee: orderSize.Mul(*sig.NoAsk).Mul(feeRate), CreatedAt: now, UpdatedAt: now,
	}

	_ = e.cfg.Ledger.LogOrder(ctx, tradesetID, yesOrder)
	_ = e.cfg.Ledger.LogOrder(ctx, tradesetID, noOrder)

	yesCost := orderSize.Mul(*sig.YesAsk)
	noCost := orderSize.Mul(*sig.NoAsk)
	totalFees := yesOrder.Fee.Add(noOrder.Fee)
	expectedPayout := orderSize.Mul(one)
	realizedPnL, _ := expectedPayout.Sub(yesCost).Sub(noCost).Sub(totalFees).Float64()

	filled := types.TradeSetFilled
	_ = e.cfg.Ledger.UpdateTradeSet(ctx, tradesetID, ledger.TradeSetUpdate{
		Status: &filled, YesOrderID: &yesOrderID, NoOrderID: &noOrderID,
		YesCost: floatPtr(yesCost), NoCost: floatPtr(noCost),
		TotalFees: floatPtr(totalFees), RealizedPnL: &realizedPnL,
	})

	e.cfg.Logger.Info("paper-complete-set-executed",
		zap.String("market-id", marketID),
		zap.String("yes-ask", sig.YesAsk.String()),
		zap.String("no-ask", sig.NoAsk.String()))

	return Result{Success: true, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, RealizedPnL: &realizedPnL}
}

// executeLive places both legs against the real adapter, then polls
// both order statuses on a fixed cadence (cfg.PollInterval, deliberately
// not an exponential backoff) until both fill or the timeout elapses.
func (e *Engine) executeLive(ctx context.Context, marketID string, market types.MarketBook, sig types.TradeSignal, orderSize decimal.Decimal, tradesetID int64) Result {
	yesOrder, err := e.cfg.Adapter.PlaceOrder(ctx, marketID, market.YesToken.TokenID, types.OrderSideBuy, types.OrderTypeLimit, *sig.YesAsk, orderSize)
	if err != nil {
		failed := types.TradeSetFailed
		_ = e.cfg.Ledger.UpdateTradeSet(ctx, tradesetID, ledger.TradeSetUpdate{Status: &failed})
		return Result{Success: false, TradeSetID: tradesetID, Error: fmt.Sprintf("place yes order: %v", err)}
	}
	_ = e.cfg.Ledger.LogOrder(ctx, tradesetID, yesOrder)

	if yesOrder.Status == types.OrderStatusRejected {
		_ = e.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{Kind: types.RiskEventReject, MarketID: marketID, Details: "YES", CreatedAt: e.cfg.Clock()})
		failed := types.TradeSetFailed
		_ = e.cfg.Ledger.UpdateTradeSet(ctx, tradesetID, ledger.TradeSetUpdate{Status: &failed})
		return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, Error: "YES order rejected"}
	}

	noOrder, err := e.cfg.Adapter.PlaceOrder(ctx, marketID, market.NoToken.TokenID, types.OrderSideBuy, types.OrderTypeLimit, *sig.NoAsk, orderSize)
	if err != nil {
		e.handlePartialFill(ctx, marketID, tradesetID, &yesOrder, nil)
		return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, Error: fmt.Sprintf("place no order: %v", err)}
	}
	_ = e.cfg.Ledger.LogOrder(ctx, tradesetID, noOrder)

	if noOrder.Status == types.OrderStatusRejected {
		_ = e.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{Kind: types.RiskEventReject, MarketID: marketID, Details: "NO", CreatedAt: e.cfg.Clock()})
		e.handlePartialFill(ctx, marketID, tradesetID, &yesOrder, nil)
		return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, Error: "NO order rejected, YES leg exposed"}
	}

	e.setState(marketID, types.ExecWaitingFills)

	deadline := e.cfg.Clock().Add(e.cfg.OrderTimeout)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for e.cfg.Clock().Before(deadline) {
		select {
		case <-ctx.Done():
			e.handlePartialFill(ctx, marketID, tradesetID, &yesOrder, &noOrder)
			return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, Error: ctx.Err().Error()}
		case <-ticker.C:
		}

		if status, err := e.cfg.Adapter.GetOrderStatus(ctx, yesOrder.OrderID); err == nil {
			yesOrder = status
		}
		if status, err := e.cfg.Adapter.GetOrderStatus(ctx, noOrder.OrderID); err == nil {
			noOrder = status
		}

		yesFilled := yesOrder.Status == types.OrderStatusFilled
		noFilled := noOrder.Status == types.OrderStatusFilled

		if yesFilled && noFilled {
			yesCost := yesOrder.FilledSize.Mul(yesOrder.AvgFillPrice)
			noCost := noOrder.FilledSize.Mul(noOrder.AvgFillPrice)
			totalFees := yesOrder.Fee.Add(noOrder.Fee)
			minFilled := yesOrder.FilledSize
			if noOrder.FilledSize.LessThan(minFilled) {
				minFilled = noOrder.FilledSize
			}
			expectedPayout := minFilled.Mul(one)
			realizedPnL, _ := expectedPayout.Sub(yesCost).Sub(noCost).Sub(totalFees).Float64()

			filled := types.TradeSetFilled
			_ = e.cfg.Ledger.UpdateTradeSet(ctx, tradesetID, ledger.TradeSetUpdate{
				Status: &filled, YesOrderID: &yesOrder.OrderID, NoOrderID: &noOrder.OrderID,
				YesCost: floatPtr(yesCost), NoCost: floatPtr(noCost),
				TotalFees: floatPtr(totalFees), RealizedPnL: &realizedPnL,
			})

			e.cfg.Logger.Info("complete-set-filled", zap.String("market-id", marketID), zap.Float64("realized-pnl", realizedPnL))
			return Result{Success: true, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, RealizedPnL: &realizedPnL}
		}

		if yesOrder.Status == types.OrderStatusPartiallyFilled || noOrder.Status == types.OrderStatusPartiallyFilled {
			_ = e.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{Kind: types.RiskEventPartialFill, MarketID: marketID, CreatedAt: e.cfg.Clock()})
			e.handlePartialFill(ctx, marketID, tradesetID, &yesOrder, &noOrder)
			return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, Error: "partial fill detected"}
		}
	}

	e.cfg.Logger.Warn("order-timeout", zap.String("market-id", marketID))
	if yesOrder.Status != noOrder.Status || !yesOrder.FilledSize.Equal(noOrder.FilledSize) {
		_ = e.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{Kind: types.RiskEventPartialFill, MarketID: marketID, Details: "timeout with asymmetric fills", CreatedAt: e.cfg.Clock()})
	}
	e.handlePartialFill(ctx, marketID, tradesetID, &yesOrder, &noOrder)
	return Result{Success: false, TradeSetID: tradesetID, YesOrder: &yesOrder, NoOrder: &noOrder, Error: "order timeout"}
}

// handlePartialFill cancels whichever legs are still open and marks
// the tradeset partial_fill. It never places an offsetting trade.
func (e *Engine) handlePartialFill(ctx context.Context, marketID string, tradesetID int64, yesOrder, noOrder *types.Order) {
	e.setState(marketID, types.ExecPartialFillProtect)
	e.cfg.Logger.Warn("partial-fill-protection-triggered", zap.String("market-id", marketID))

	if yesOrder != nil && yesOrder.Status.IsOpenForCancel() {
		if _, err := e.cfg.Adapter.CancelOrder(ctx, yesOrder.OrderID); err != nil {
			e.cfg.Logger.Error("cancel-yes-order-failed", zap.String("order-id", yesOrder.OrderID), zap.Error(err))
		}
	}
	if noOrder != nil && noOrder.Status.IsOpenForCancel() {
		if _, err := e.cfg.Adapter.CancelOrder(ctx, noOrder.OrderID); err != nil {
			e.cfg.Logger.Error("cancel-no-order-failed", zap.String("order-id", noOrder.OrderID), zap.Error(err))
		}
	}

	partial := types.TradeSetPartialFill
	_ = e.cfg.Ledger.UpdateTradeSet(ctx, tradesetID, ledger.TradeSetUpdate{Status: &partial})

	if e.cfg.HaltOnPartialFill {
		e.Halt()
		e.cfg.Logger.Warn("halting-execution-due-to-partial-fill")
	}
}

func floatPtr(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	return &f
}
