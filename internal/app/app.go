package app

import (
	"context"
	"sync"

	"github.com/biserd/completeset-arb/internal/adapter"
	"github.com/biserd/completeset-arb/internal/execution"
	"github.com/biserd/completeset-arb/internal/ledger"
	"github.com/biserd/completeset-arb/internal/orderbook"
	"github.com/biserd/completeset-arb/internal/risk"
	"github.com/biserd/completeset-arb/internal/signal"
	"github.com/biserd/completeset-arb/pkg/config"
	"github.com/biserd/completeset-arb/pkg/healthprobe"
	"github.com/biserd/completeset-arb/pkg/httpserver"
	"github.com/biserd/completeset-arb/pkg/wallet"
	"go.uber.org/zap"
)

// App is the main application orchestrator: it wires the venue
// adapter's callbacks through the order-book state, signal engine, and
// execution engine, with the risk controller observing the ledger for
// kill-switch conditions.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	venue         adapter.Adapter
	obManager     *orderbook.Manager
	signalEngine  *signal.Engine
	execEngine    *execution.Engine
	riskCtrl      *risk.Controller
	ledger        *ledger.Ledger
	walletTracker *wallet.Tracker
	markets       []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Markets, if set, overrides cfg.Markets for this run; the `run`
	// command passes the configured market list here.
	Markets []string
}
