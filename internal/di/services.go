package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/clients/binance"
	"github.com/aristath/pricewatch/internal/clients/coinbase"
	"github.com/aristath/pricewatch/internal/clients/coingecko"
	"github.com/aristath/pricewatch/internal/clients/transport"
	"github.com/aristath/pricewatch/internal/config"
	"github.com/aristath/pricewatch/internal/features"
	"github.com/aristath/pricewatch/internal/marketdata"
	"github.com/aristath/pricewatch/internal/modules/alerts"
	"github.com/aristath/pricewatch/internal/notify/telegram"
	"github.com/aristath/pricewatch/internal/seed"
	"github.com/aristath/pricewatch/internal/worker"
)

// InitializeServices creates the provider clients, market data aggregator,
// feature engine, notifier and the tick worker
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.AssetRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	opts := transport.Options{
		Timeout:    cfg.HTTPTimeout,
		RatePerSec: cfg.ProviderRatePerSec,
	}
	providers := []marketdata.Provider{
		binance.NewClient(opts, log),
		coinbase.NewClient(opts, log),
		coingecko.NewClient(opts, log),
	}

	container.Aggregator = marketdata.NewAggregator(marketdata.Config{
		Order:         cfg.ProviderOrder,
		FailThreshold: cfg.CBFailThreshold,
		OpenDuration:  cfg.CBOpenDuration,
		CacheTTL:      cfg.PriceCacheTTL,
	}, providers, log)
	if len(container.Aggregator.Providers()) == 0 {
		return fmt.Errorf("PROVIDER_ORDER %v names no known provider", cfg.ProviderOrder)
	}

	container.Features = features.NewEngine(features.Config{
		EMAShort:  cfg.EMAShort,
		EMALong:   cfg.EMALong,
		ATRPeriod: cfg.ATRPeriod,
		VolWindow: cfg.VolWindow,
		RSIPeriod: cfg.RSIPeriod,
	})

	container.Notifier = telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.HTTPTimeout, log)
	if !container.Notifier.Configured() {
		log.Warn().Msg("Telegram not configured, alerts will only be logged")
	}

	container.Deduplicator = alerts.NewDeduplicator(container.AlertRepo)
	container.Seeder = seed.NewSeeder(container.AssetRepo, container.HoldingRepo, container.StrategyRepo, log)

	container.Worker = worker.New(worker.Deps{
		Assets:     container.AssetRepo,
		Holdings:   container.HoldingRepo,
		Strategies: container.StrategyRepo,
		States:     container.StateRepo,
		Dedup:      container.Deduplicator,
		Prices:     container.Aggregator,
		Features:   container.Features,
		Notifier:   container.Notifier,
	}, worker.Config{
		Interval:    cfg.PollInterval,
		Concurrency: cfg.WorkerConcurrency,
	}, log)

	log.Debug().
		Interface("providers", container.Aggregator.Providers()).
		Msg("Services initialized")
	return nil
}
