package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tracker periodically polls on-chain balances and caches the latest
// read so the risk controller can consult it without an RPC round trip
// on every check interval.
type Tracker struct {
	client       *Client
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger

	mu         sync.RWMutex
	usdc       decimal.Decimal
	lastPolled time.Time
}

// Config holds tracker configuration.
type Config struct {
	RPCEndpoint  string
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RPCEndpoint == "" {
		return nil, errors.New("RPC endpoint cannot be empty")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	client, err := NewClient(cfg.RPCEndpoint, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	tracker := &Tracker{
		client:       client,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}

	return tracker, nil
}

// USDCBalance returns the last polled USDC balance. Zero until the first
// successful poll completes.
func (t *Tracker) USDCBalance() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.usdc
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	if pollErr := t.poll(ctx); pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			if pollErr := t.poll(ctx); pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.client.GetBalances(balCtx, t.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	t.updateMetrics(balances)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete", zap.Duration("duration", time.Since(start)))

	return nil
}

// updateMetrics updates Prometheus gauges and the cached balance with
// the latest on-chain read.
func (t *Tracker) updateMetrics(balances *Balances) {
	maticFloat := new(big.Float).Quo(
		new(big.Float).SetInt(balances.MATIC),
		big.NewFloat(1e18))
	maticVal, _ := maticFloat.Float64()
	MATICBalance.Set(maticVal)

	usdcFloat := new(big.Float).Quo(
		new(big.Float).SetInt(balances.USDC),
		big.NewFloat(1e6))
	usdcVal, _ := usdcFloat.Float64()
	USDCBalance.Set(usdcVal)

	allowanceFloat := new(big.Float).Quo(
		new(big.Float).SetInt(balances.USDCAllowance),
		big.NewFloat(1e6))
	allowanceVal, _ := allowanceFloat.Float64()
	USDCAllowance.Set(allowanceVal)

	t.mu.Lock()
	t.usdc = decimal.NewFromFloat(usdcVal)
	t.lastPolled = time.Now()
	t.mu.Unlock()
}
