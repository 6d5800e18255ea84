package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/biserd/completeset-arb/internal/adapter/polymarket"
	"github.com/biserd/completeset-arb/internal/execution"
	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/internal/orderbook"
	"github.com/biserd/completeset-arb/internal/risk"
	"github.com/biserd/completeset-arb/internal/signal"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/biserd/completeset-arb/pkg/healthprobe"
	"github.com/biserd/completeset-arb/pkg/httpserver"
	"github.com/biserd/completeset-arb/pkg/types"
	"github.com/biserd/completeset-arb/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// riskCheckInterval is how often the kill switch polls the ledger for
// threshold breaches. Not itself spec-configurable; a minute is fast
// enough to catch a burst of bad events without hammering SQLite.
const riskCheckInterval = 1 * time.Minute

// defaultMarketLimit caps auto-discovery when cfg.Markets is empty.
const defaultMarketLimit = 50

// walletPollInterval is how often the optional balance guard re-reads
// the on-chain USDC balance.
const walletPollInterval = 1 * time.Minute

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()
	httpServer := setupHTTPServer(cfg, logger, healthChecker)

	store, err := ledger.Open(ledger.Config{Path: cfg.DataSQLitePath, Logger: logger})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	venue, err := setupAdapter(cfg, logger, store)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("setup adapter: %w", err)
	}

	obManager := orderbook.New(&orderbook.Config{Logger: logger})

	signalEngine := signal.New(signal.Config{
		MinEdge:    decimal.NewFromFloat(cfg.StrategyMinEdge),
		CostBuffer: decimal.NewFromFloat(cfg.StrategyCostBuffer),
		MinDepth:   decimal.NewFromFloat(cfg.StrategyMinDepth),
		FeeRate:    venue.FeeRate(),
		Logger:     logger,
	})

	execEngine := execution.New(execution.Config{
		Adapter:                 venue,
		SignalEngine:            signalEngine,
		Ledger:                  store,
		OrderSize:               decimal.NewFromFloat(cfg.ExecutionOrderSize),
		MaxDailyNotional:        decimal.NewFromFloat(cfg.RiskMaxDailyNotional),
		MaxOpenPositions:        cfg.RiskMaxOpenPositions,
		HaltOnPartialFill:       cfg.RiskHaltOnPartialFill,
		OrderTimeout:            cfg.ExecutionOrderTimeoutSeconds,
		PollInterval:            200 * time.Millisecond,
		CooldownDuration:        cfg.ExecutionCooldownSeconds,
		Paper:                   cfg.PaperMode,
		Logger:                  logger,
		MaxPartialFillsPerHour:  cfg.RiskMaxPartialFillsPerHour,
		MaxRejectsPerHour:       cfg.RiskMaxRejectsPerHour,
		MaxWSDisconnectsPerHour: cfg.RiskMaxWSDisconnectsPerHour,
	})

	walletTracker, err := setupWalletTracker(logger)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("setup wallet tracker: %w", err)
	}

	riskCfg := risk.Config{
		MaxPartialFillsPerHour:  cfg.RiskMaxPartialFillsPerHour,
		MaxRejectsPerHour:       cfg.RiskMaxRejectsPerHour,
		MaxWSDisconnectsPerHour: cfg.RiskMaxWSDisconnectsPerHour,
		CheckInterval:           riskCheckInterval,
		Ledger:                  store,
		Control:                 store,
		Logger:                  logger,
		HaltCallback: func(reason string) {
			logger.Warn("kill-switch-triggered", zap.String("reason", reason))
			execEngine.Halt()
		},
	}
	if walletTracker != nil {
		riskCfg.Balance = walletTracker
		riskCfg.MaxDailyNotional = decimal.NewFromFloat(cfg.RiskMaxDailyNotional)
	}

	riskCtrl, err := risk.New(riskCfg)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("setup risk controller: %w", err)
	}

	healthChecker.SetHaltChecker(execEngine.IsHalted)

	markets := opts.Markets
	if len(markets) == 0 {
		markets = cfg.Markets
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		venue:         venue,
		obManager:     obManager,
		signalEngine:  signalEngine,
		execEngine:    execEngine,
		riskCtrl:      riskCtrl,
		ledger:        store,
		walletTracker: walletTracker,
		markets:       markets,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHTTPServer(cfg *config.Config, logger *zap.Logger, healthChecker *healthprobe.HealthChecker) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: healthChecker,
	})
}

// setupAdapter builds the venue adapter. paper_mode alone does not
// select the adapter — the execution engine simulates fills internally
// (execution.Config.Paper) while still consuming the real book feed,
// same as the teacher's circuit breaker degrading gracefully rather
// than erroring when no signing key is configured. Only the absence of
// a venue private key falls back to the deterministic in-memory stub,
// for fully offline demos and CI.
func setupAdapter(cfg *config.Config, logger *zap.Logger, store *ledger.Ledger) (adapter.Adapter, error) {
	privateKey := strings.TrimPrefix(os.Getenv("VENUE_PRIVATE_KEY"), "0x")
	if privateKey == "" {
		logger.Warn("venue-adapter-stub-no-private-key",
			zap.String("note", "VENUE_PRIVATE_KEY not set, using offline stub adapter"))
		return adapter.NewStub(adapter.StubConfig{
			FeeRate: decimal.NewFromFloat(0.01),
		}), nil
	}

	client, err := polymarket.New(polymarket.Config{
		APIKey:       os.Getenv("VENUE_API_KEY"),
		Secret:       os.Getenv("VENUE_API_SECRET"),
		Passphrase:   os.Getenv("VENUE_API_PASSPHRASE"),
		PrivateKey:   privateKey,
		ProxyAddress: cfg.VenueProxyURL,
		GammaBaseURL: cfg.VenueAPIURL,
		WSURL:        cfg.VenueWSURL,
		FeeRate:      decimal.NewFromFloat(0.01),
		Logger:       logger,
		OnDisconnect: func() {
			if err := store.LogRiskEvent(context.Background(), types.RiskEvent{
				Kind: types.RiskEventWSDisconnect,
			}); err != nil {
				logger.Error("log-ws-disconnect-failed", zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create polymarket client: %w", err)
	}

	return client, nil
}

// setupWalletTracker builds the optional on-chain balance exposure
// guard. Absent WALLET_RPC_URL or WALLET_ADDRESS it returns a nil
// tracker and no error: the guard is supplementary, never required for
// the core risk thresholds to function.
func setupWalletTracker(logger *zap.Logger) (*wallet.Tracker, error) {
	rpcURL := os.Getenv("WALLET_RPC_URL")
	address := os.Getenv("WALLET_ADDRESS")
	if rpcURL == "" || address == "" {
		logger.Info("wallet-balance-guard-disabled",
			zap.String("note", "WALLET_RPC_URL/WALLET_ADDRESS not set, skipping optional exposure guard"))
		return nil, nil
	}

	tracker, err := wallet.New(&wallet.Config{
		RPCEndpoint:  rpcURL,
		Address:      common.HexToAddress(address),
		PollInterval: walletPollInterval,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet tracker: %w", err)
	}
	return tracker, nil
}
