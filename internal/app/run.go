package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biserd/completeset-arb/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("venue", a.venue.VenueName()),
		zap.Bool("paper-mode", a.cfg.PaperMode),
		zap.String("log-level", a.cfg.DataLogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("ws-url", a.cfg.VenueWSURL))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	time.Sleep(100 * time.Millisecond)

	if err := a.venue.ConnectWS(a.ctx); err != nil {
		return fmt.Errorf("connect venue websocket: %w", err)
	}

	markets, err := a.discoverMarkets(a.ctx)
	if err != nil {
		return fmt.Errorf("discover markets: %w", err)
	}
	for _, m := range markets {
		a.obManager.Register(m)
	}

	marketIDs := make([]string, 0, len(markets))
	for _, m := range markets {
		marketIDs = append(marketIDs, m.MarketID)
	}
	if err := a.venue.SubscribeMarkets(a.ctx, marketIDs); err != nil {
		return fmt.Errorf("subscribe markets: %w", err)
	}

	a.venue.SetBookUpdateCallback(func(snapshot types.BookSnapshot) {
		a.obManager.ApplySnapshot(snapshot)
	})
	a.venue.SetFillCallback(func(fill types.Fill) {
		a.ledger.LogFill(a.ctx, fill)
	})

	a.riskCtrl.Start(a.ctx)

	a.wg.Add(1)
	go a.runSignalLoop()

	if a.walletTracker != nil {
		a.wg.Add(1)
		go a.runWalletTracker()
	}

	return nil
}

func (a *App) runWalletTracker() {
	defer a.wg.Done()
	if err := a.walletTracker.Run(a.ctx); err != nil && a.ctx.Err() == nil {
		a.logger.Error("wallet-tracker-error", zap.Error(err))
	}
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runSignalLoop consumes order-book updates and drives every market
// through the signal engine; a TRADE decision is handed to the
// execution engine. This is the single logical task the concurrency
// model relies on to serialize the hot path.
func (a *App) runSignalLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case book, ok := <-a.obManager.Updates():
			if !ok {
				return
			}
			a.handleBookUpdate(book)
		}
	}
}

func (a *App) handleBookUpdate(book types.MarketBook) {
	if a.riskCtrl.IsTriggered() || a.execEngine.IsHalted() {
		return
	}

	sig := a.signalEngine.Evaluate(book)

	if _, err := a.ledger.LogOpportunity(a.ctx, sig); err != nil {
		a.logger.Error("log-opportunity-failed", zap.Error(err))
	}

	if !sig.IsTradeable() {
		a.logger.Debug("signal-skip", zap.String("market-id", sig.MarketID), zap.String("reason", string(sig.Decision)))
		return
	}

	if a.riskCtrl.IsTriggered() || a.execEngine.IsHalted() {
		a.logger.Info("signal-trade-skipped-halted", zap.String("market-id", sig.MarketID))
		return
	}

	a.logger.Info("signal-trade", zap.String("market-id", sig.MarketID))
	result := a.execEngine.ExecuteSignal(a.ctx, sig, book)
	if !result.Success {
		a.logger.Warn("tradeset-failed", zap.String("market-id", sig.MarketID), zap.String("error", result.Error))
		return
	}
	a.logger.Info("tradeset-filled", zap.String("market-id", sig.MarketID), zap.Int64("tradeset-id", result.TradeSetID))
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
