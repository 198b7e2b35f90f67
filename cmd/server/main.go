// Package main is the entry point for the price alert engine.
//
// The process polls market data for every enabled asset, evaluates each holding's
// take-profit, stop-loss and trailing-stop rules, and delivers deduplicated alerts
// to Telegram. A small admin API manages assets, holdings and strategies.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/config"
	"github.com/aristath/pricewatch/internal/di"
	portfoliohandlers "github.com/aristath/pricewatch/internal/modules/portfolio/handlers"
	strategieshandlers "github.com/aristath/pricewatch/internal/modules/strategies/handlers"
	universehandlers "github.com/aristath/pricewatch/internal/modules/universe/handlers"
	"github.com/aristath/pricewatch/internal/server"
	"github.com/aristath/pricewatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Dur("poll_interval", cfg.PollInterval).
		Strs("providers", cfg.ProviderOrder).
		Msg("Starting price alert engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := newServer(cfg, container, log)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		container.Worker.Run(ctx)
	}()

	container.Scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	// Stop the tick loop first so no state is written after the database closes
	cancel()
	<-workerDone
	log.Info().Msg("Worker stopped")

	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.DB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("Server stopped")
}

func newServer(cfg *config.Config, c *di.Container, log zerolog.Logger) *server.Server {
	return server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Modules: []server.RouteRegistrar{
			universehandlers.NewHandler(c.AssetRepo, log),
			portfoliohandlers.NewHandler(c.HoldingRepo, c.StateRepo, c.AlertRepo, log),
			strategieshandlers.NewHandler(c.StrategyRepo, log),
		},
		System: server.NewSystemHandlers(c.Worker, c.Aggregator, c.DB, c.Scheduler, log),
	})
}
