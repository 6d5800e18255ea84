package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	a.riskCtrl.Stop()

	if err := a.venue.DisconnectWS(); err != nil {
		a.logger.Error("venue-disconnect-error", zap.Error(err))
	}

	a.obManager.Close()

	// Wait for the pipeline goroutines, bounded by shutdownCtx, before
	// the ledger is closed underneath them.
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("shutdown-grace-period-elapsed")
	}

	if err := a.ledger.Close(); err != nil {
		a.logger.Error("ledger-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")
	return nil
}
