package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type fakeBalanceGuard struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

func (f *fakeBalanceGuard) USDCBalance() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

func (f *fakeBalanceGuard) set(v decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = v
}

type fakeLedger struct {
	mu     sync.Mutex
	counts map[types.RiskEventKind]int
	events []types.RiskEvent
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{counts: make(map[types.RiskEventKind]int)}
}

func (f *fakeLedger) CountRiskEvents(ctx context.Context, kind types.RiskEventKind, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[kind], nil
}

func (f *fakeLedger) LogRiskEvent(ctx context.Context, event types.RiskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeControlStore struct {
	mu         sync.Mutex
	halted     bool
	reason     string
	heartbeats int
}

func (f *fakeControlStore) PollControl(ctx context.Context) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halted, f.reason, nil
}

func (f *fakeControlStore) Heartbeat(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeControlStore) setHalted(halted bool, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halted = halted
	f.reason = reason
}

func (f *fakeControlStore) RequestHalt(ctx context.Context, reason string) error {
	f.setHalted(true, reason)
	return nil
}

func (f *fakeControlStore) RequestResume(ctx context.Context) error {
	f.setHalted(false, "")
	return nil
}

func TestPollControlLatchesOnHaltRequest(t *testing.T) {
	ledger := newFakeLedger()
	control := &fakeControlStore{}
	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Control: control, Logger: zaptest.NewLogger(t),
	})

	control.setHalted(true, "operator requested halt")
	c.pollControl(context.Background())

	if !c.IsTriggered() {
		t.Fatal("expected a CLI halt request to latch the kill switch")
	}
	if control.heartbeats != 1 {
		t.Errorf("expected exactly one heartbeat write, got %d", control.heartbeats)
	}
}

func TestPollControlResumeClearsCLITrigger(t *testing.T) {
	ledger := newFakeLedger()
	control := &fakeControlStore{}
	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Control: control, Logger: zaptest.NewLogger(t),
	})

	control.setHalted(true, "operator requested halt")
	c.pollControl(context.Background())
	if !c.IsTriggered() {
		t.Fatal("expected halt request to latch")
	}

	control.setHalted(false, "")
	c.pollControl(context.Background())
	if c.IsTriggered() {
		t.Fatal("expected resume request to clear a CLI-originated trigger")
	}
}

func TestThresholdTriggerSyncsToControlStore(t *testing.T) {
	ledger := newFakeLedger()
	ledger.counts[types.RiskEventPartialFill] = 5
	control := &fakeControlStore{}
	c, _ := New(Config{
		MaxPartialFillsPerHour: 3, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Control: control, Logger: zaptest.NewLogger(t),
	})

	c.CheckConditions(context.Background())
	if !c.IsTriggered() {
		t.Fatal("expected threshold breach to trigger")
	}

	halted, _, _ := control.PollControl(context.Background())
	if !halted {
		t.Fatal("expected a threshold-originated trigger to be written back to the control row")
	}

	// The control row is the single source of truth `status` reads, so
	// an operator `resume` must be able to clear a threshold-originated
	// trigger too, not just a CLI-originated one.
	control.setHalted(false, "")
	c.pollControl(context.Background())
	if c.IsTriggered() {
		t.Fatal("expected a resume request to clear a threshold-originated trigger")
	}
}

func TestCheckBalanceLogsOnceBelowDailyNotional(t *testing.T) {
	ledger := newFakeLedger()
	balance := &fakeBalanceGuard{balance: decimal.NewFromInt(50)}
	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
		Balance: balance, MaxDailyNotional: decimal.NewFromInt(100),
	})

	c.checkBalance(context.Background())
	c.checkBalance(context.Background())

	if c.IsTriggered() {
		t.Fatal("a low wallet balance must not latch the kill switch by itself")
	}
	if len(ledger.events) != 1 {
		t.Fatalf("expected exactly one risk_limit event, got %d", len(ledger.events))
	}
	if ledger.events[0].Kind != types.RiskEventRiskLimit {
		t.Errorf("expected risk_limit event kind, got %q", ledger.events[0].Kind)
	}
}

func TestCheckBalanceResetsOnceAboveDailyNotionalAgain(t *testing.T) {
	ledger := newFakeLedger()
	balance := &fakeBalanceGuard{balance: decimal.NewFromInt(50)}
	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
		Balance: balance, MaxDailyNotional: decimal.NewFromInt(100),
	})

	c.checkBalance(context.Background())
	balance.set(decimal.NewFromInt(200))
	c.checkBalance(context.Background())
	balance.set(decimal.NewFromInt(50))
	c.checkBalance(context.Background())

	if len(ledger.events) != 2 {
		t.Fatalf("expected a fresh risk_limit event after balance recovered and dropped again, got %d", len(ledger.events))
	}
}

func TestCheckBalanceNoopWithoutGuardConfigured(t *testing.T) {
	ledger := newFakeLedger()
	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 100, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	c.checkBalance(context.Background())

	if len(ledger.events) != 0 {
		t.Fatalf("expected no events without a configured balance guard, got %d", len(ledger.events))
	}
}

func TestNewValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ledger := newFakeLedger()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid-config",
			cfg: Config{
				MaxPartialFillsPerHour: 3, MaxRejectsPerHour: 10, MaxWSDisconnectsPerHour: 5,
				CheckInterval: time.Minute, Ledger: ledger, Logger: logger,
			},
			wantErr: false,
		},
		{
			name:    "nil-ledger",
			cfg:     Config{CheckInterval: time.Minute, Logger: logger},
			wantErr: true,
		},
		{
			name:    "nil-logger",
			cfg:     Config{CheckInterval: time.Minute, Ledger: ledger},
			wantErr: true,
		},
		{
			name:    "zero-check-interval",
			cfg:     Config{Ledger: ledger, Logger: logger},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckConditionsTriggersOnPartialFills(t *testing.T) {
	ledger := newFakeLedger()
	ledger.counts[types.RiskEventPartialFill] = 3

	c, err := New(Config{
		MaxPartialFillsPerHour: 3, MaxRejectsPerHour: 10, MaxWSDisconnectsPerHour: 5,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if c.IsTriggered() {
		t.Fatal("expected controller to start untriggered")
	}

	if triggered := c.CheckConditions(context.Background()); !triggered {
		t.Fatal("expected kill switch to trigger")
	}
	if !c.IsTriggered() {
		t.Fatal("expected IsTriggered to report true")
	}

	status := c.Status()
	if status.TriggerReason == "" {
		t.Error("expected a trigger reason to be recorded")
	}
}

func TestCheckConditionsBelowThresholdDoesNotTrigger(t *testing.T) {
	ledger := newFakeLedger()
	ledger.counts[types.RiskEventPartialFill] = 2

	c, _ := New(Config{
		MaxPartialFillsPerHour: 3, MaxRejectsPerHour: 10, MaxWSDisconnectsPerHour: 5,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	if c.CheckConditions(context.Background()) {
		t.Fatal("expected kill switch not to trigger below threshold")
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	c, _ := New(Config{
		MaxPartialFillsPerHour: 1, MaxRejectsPerHour: 1, MaxWSDisconnectsPerHour: 1,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	c.ManualTrigger(context.Background(), "first")
	c.ManualTrigger(context.Background(), "second")

	if len(ledger.events) != 1 {
		t.Fatalf("expected exactly one logged kill-switch event, got %d", len(ledger.events))
	}
	if c.Status().TriggerReason != "first" {
		t.Errorf("expected reason to remain the first trigger, got %q", c.Status().TriggerReason)
	}
}

func TestHaltCallbackInvokedOnce(t *testing.T) {
	ledger := newFakeLedger()
	var calls int
	var mu sync.Mutex

	c, _ := New(Config{
		MaxPartialFillsPerHour: 1, MaxRejectsPerHour: 1, MaxWSDisconnectsPerHour: 1,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
		HaltCallback: func(reason string) {
			mu.Lock()
			defer mu.Unlock()
			calls++
		},
	})

	c.ManualTrigger(context.Background(), "reason-one")
	c.ManualTrigger(context.Background(), "reason-two")

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected halt callback to fire exactly once, got %d", calls)
	}
}

func TestResetClearsLatch(t *testing.T) {
	ledger := newFakeLedger()
	c, _ := New(Config{
		MaxPartialFillsPerHour: 1, MaxRejectsPerHour: 1, MaxWSDisconnectsPerHour: 1,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	c.ManualTrigger(context.Background(), "boom")
	if !c.IsTriggered() {
		t.Fatal("expected triggered state")
	}

	c.Reset()
	if c.IsTriggered() {
		t.Fatal("expected reset to clear the latch")
	}
	if c.Status().TriggerReason != "" {
		t.Error("expected trigger reason cleared after reset")
	}
}

func TestResetOnUntriggeredControllerIsNoop(t *testing.T) {
	ledger := newFakeLedger()
	c, _ := New(Config{
		MaxPartialFillsPerHour: 1, MaxRejectsPerHour: 1, MaxWSDisconnectsPerHour: 1,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	c.Reset()
	if c.IsTriggered() {
		t.Fatal("expected controller to remain untriggered")
	}
}

func TestKillSwitchAuthoritativeRegardlessOfHaltFlag(t *testing.T) {
	// The kill switch's own thresholds are the only thing that gates
	// triggering here; there is no halt-on-partial-fill flag wired into
	// this package at all, confirming the two controls are independent.
	ledger := newFakeLedger()
	ledger.counts[types.RiskEventReject] = 10

	c, _ := New(Config{
		MaxPartialFillsPerHour: 100, MaxRejectsPerHour: 10, MaxWSDisconnectsPerHour: 100,
		CheckInterval: time.Minute, Ledger: ledger, Logger: zaptest.NewLogger(t),
	})

	if !c.CheckConditions(context.Background()) {
		t.Fatal("expected reject threshold alone to trigger the kill switch")
	}
}
