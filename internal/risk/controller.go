// Package risk implements the latching risk controller (kill switch):
// it watches rolling-hour counts of typed risk events and halts
// trading the instant any configured threshold is crossed. Once
// triggered it stays triggered until an operator calls Reset.
package risk

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventCounter supplies rolling-window counts of risk events, backed
// by the ledger's risk_events table.
type EventCounter interface {
	CountRiskEvents(ctx context.Context, kind types.RiskEventKind, since time.Time) (int, error)
	LogRiskEvent(ctx context.Context, event types.RiskEvent) error
}

// ControlStore backs the out-of-process `halt`/`resume` CLI commands.
// The running instance treats the control row as the single source of
// truth for the latch: it both polls for CLI-requested halts and syncs
// its own threshold-triggered latches back to the same row, so `status`
// reports one consistent kill-switch state regardless of what tripped it.
type ControlStore interface {
	PollControl(ctx context.Context) (halted bool, reason string, err error)
	Heartbeat(ctx context.Context) error
	RequestHalt(ctx context.Context, reason string) error
	RequestResume(ctx context.Context) error
}

// BalanceGuard supplies the wallet's last-polled on-chain USDC balance,
// the supplementary exposure guard described alongside the core risk
// thresholds: optional, and never a substitute for the rolling-hour
// event counts.
type BalanceGuard interface {
	USDCBalance() decimal.Decimal
}

// Config holds kill switch thresholds, one per tracked event kind, and
// the dependencies it needs to evaluate them.
type Config struct {
	MaxPartialFillsPerHour  int
	MaxRejectsPerHour       int
	MaxWSDisconnectsPerHour int
	CheckInterval           time.Duration
	Ledger                  EventCounter
	Control                 ControlStore
	Balance                 BalanceGuard
	MaxDailyNotional        decimal.Decimal
	Logger                  *zap.Logger
	Clock                   func() time.Time
	HaltCallback            func(reason string)
}

// Status is a snapshot of the controller's current state, returned to
// the CLI's `status` command.
type Status struct {
	Triggered     bool
	TriggerReason string
	TriggerTime   time.Time
}

// Controller is the kill switch. Triggered is read lock-free from the
// hot execution path via IsTriggered.
type Controller struct {
	cfg Config

	triggered    atomic.Bool
	belowBalance atomic.Bool

	mu            sync.Mutex
	triggerReason string
	triggerTime   time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates cfg and constructs a Controller. It does not start the
// monitoring loop; call Start for that.
func New(cfg Config) (*Controller, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("risk: ledger is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("risk: logger is required")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("risk: check interval must be positive")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Controller{cfg: cfg}, nil
}

// Start launches the background loop that polls the ledger for
// threshold breaches every CheckInterval.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.monitorLoop()
}

func (c *Controller) monitorLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CheckConditions(c.ctx)
			c.pollControl(c.ctx)
		}
	}
}

// pollControl checks the out-of-process halt request the CLI's
// `halt`/`resume` commands write, and stamps a heartbeat so those
// commands can tell an instance is actually running. A no-op when no
// ControlStore is configured.
func (c *Controller) pollControl(ctx context.Context) {
	if c.cfg.Control == nil {
		return
	}
	if err := c.cfg.Control.Heartbeat(ctx); err != nil {
		c.cfg.Logger.Warn("control-heartbeat-failed", zap.Error(err))
	}

	halted, reason, err := c.cfg.Control.PollControl(ctx)
	if err != nil {
		c.cfg.Logger.Warn("control-poll-failed", zap.Error(err))
		return
	}

	if halted && !c.triggered.Load() {
		if reason == "" {
			reason = "operator halt request"
		}
		c.trigger(ctx, reason)
		return
	}
	if !halted && c.triggered.Load() {
		c.Reset()
	}

	c.checkBalance(ctx)
}

// checkBalance compares the wallet's last-polled USDC balance against
// MaxDailyNotional and logs a risk_limit event the moment the balance
// drops below headroom. Edge-triggered so a sustained low balance logs
// once per drop rather than once per check interval. This never latches
// the kill switch itself; it is a supplementary signal surfaced
// alongside the ledger-derived counts.
func (c *Controller) checkBalance(ctx context.Context) {
	if c.cfg.Balance == nil || c.cfg.MaxDailyNotional.IsZero() {
		return
	}

	balance := c.cfg.Balance.USDCBalance()
	below := balance.LessThan(c.cfg.MaxDailyNotional)

	if below && c.belowBalance.CompareAndSwap(false, true) {
		c.cfg.Logger.Warn("wallet-balance-below-daily-notional",
			zap.String("balance", balance.String()),
			zap.String("max-daily-notional", c.cfg.MaxDailyNotional.String()))

		if err := c.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{
			Kind:      types.RiskEventRiskLimit,
			Details:   fmt.Sprintf("wallet USDC balance %s below max daily notional %s", balance.String(), c.cfg.MaxDailyNotional.String()),
			CreatedAt: c.cfg.Clock(),
		}); err != nil {
			c.cfg.Logger.Warn("risk-event-log-failed", zap.Error(err))
		}
		return
	}

	if !below {
		c.belowBalance.Store(false)
	}
}

// Stop halts the monitoring loop and waits for it to exit.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// IsTriggered reports whether the kill switch is currently latched.
// Lock-free; safe to call from the execution hot path before every
// signal dispatch.
func (c *Controller) IsTriggered() bool {
	return c.triggered.Load()
}

// CheckConditions evaluates every threshold against the trailing hour
// and triggers on the first breach found, in the order partial fills,
// rejects, then disconnects. Returns true if the kill switch is (now
// or already) triggered.
func (c *Controller) CheckConditions(ctx context.Context) bool {
	if c.triggered.Load() {
		return true
	}

	since := c.cfg.Clock().Add(-time.Hour)

	partialFills, err := c.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventPartialFill, since)
	if err != nil {
		c.cfg.Logger.Warn("risk-count-query-failed", zap.String("kind", string(types.RiskEventPartialFill)), zap.Error(err))
	} else if partialFills >= c.cfg.MaxPartialFillsPerHour {
		c.trigger(ctx, fmt.Sprintf("too many partial fills: %d", partialFills))
		return true
	}

	rejects, err := c.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventReject, since)
	if err != nil {
		c.cfg.Logger.Warn("risk-count-query-failed", zap.String("kind", string(types.RiskEventReject)), zap.Error(err))
	} else if rejects >= c.cfg.MaxRejectsPerHour {
		c.trigger(ctx, fmt.Sprintf("too many order rejects: %d", rejects))
		return true
	}

	disconnects, err := c.cfg.Ledger.CountRiskEvents(ctx, types.RiskEventWSDisconnect, since)
	if err != nil {
		c.cfg.Logger.Warn("risk-count-query-failed", zap.String("kind", string(types.RiskEventWSDisconnect)), zap.Error(err))
	} else if disconnects >= c.cfg.MaxWSDisconnectsPerHour {
		c.trigger(ctx, fmt.Sprintf("too many websocket disconnects: %d", disconnects))
		return true
	}

	return false
}

// trigger is the single latch point. It is idempotent: once triggered,
// repeated calls (from a racing caller or a subsequent poll) are no-ops.
// The kill switch's authority is independent of any executor-level
// halt-on-partial-fill flag; it always latches once its own thresholds
// are crossed.
func (c *Controller) trigger(ctx context.Context, reason string) {
	if !c.triggered.CompareAndSwap(false, true) {
		return
	}

	now := c.cfg.Clock()
	c.mu.Lock()
	c.triggerReason = reason
	c.triggerTime = now
	c.mu.Unlock()

	TriggersTotal.Inc()
	c.cfg.Logger.Error("kill-switch-triggered", zap.String("reason", reason))

	if err := c.cfg.Ledger.LogRiskEvent(ctx, types.RiskEvent{
		Kind:      types.RiskEventKillSwitch,
		Details:   reason,
		CreatedAt: now,
	}); err != nil {
		c.cfg.Logger.Warn("risk-event-log-failed", zap.Error(err))
	}

	if c.cfg.HaltCallback != nil {
		c.cfg.HaltCallback(reason)
	}

	if c.cfg.Control != nil {
		if err := c.cfg.Control.RequestHalt(ctx, reason); err != nil {
			c.cfg.Logger.Warn("control-sync-halt-failed", zap.Error(err))
		}
	}
}

// ManualTrigger lets the operator CLI's `halt` command latch the kill
// switch directly, without waiting for a threshold breach.
func (c *Controller) ManualTrigger(ctx context.Context, reason string) {
	if reason == "" {
		reason = "manual trigger"
	}
	c.trigger(ctx, reason)
}

// Reset clears the latch. This is the only way to resume trading once
// triggered; there is no automatic recovery.
func (c *Controller) Reset() {
	if !c.triggered.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	c.triggerReason = ""
	c.triggerTime = time.Time{}
	c.mu.Unlock()
	c.cfg.Logger.Info("kill-switch-reset")

	if c.cfg.Control != nil {
		if err := c.cfg.Control.RequestResume(context.Background()); err != nil {
			c.cfg.Logger.Warn("control-sync-resume-failed", zap.Error(err))
		}
	}
}

// Status returns a snapshot of the controller's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Triggered:     c.triggered.Load(),
		TriggerReason: c.triggerReason,
		TriggerTime:   c.triggerTime,
	}
}
