package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/modules/alerts"
	"github.com/aristath/pricewatch/internal/modules/portfolio"
	"github.com/aristath/pricewatch/internal/modules/strategies"
	"github.com/aristath/pricewatch/internal/modules/universe"
)

// InitializeRepositories creates all repositories over the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database not initialized")
	}

	conn := container.DB.Conn()

	container.AssetRepo = universe.NewAssetRepository(conn, log)
	container.HoldingRepo = portfolio.NewHoldingRepository(conn, log)
	container.StateRepo = portfolio.NewStateRepository(conn, log)
	container.StrategyRepo = strategies.NewRepository(conn, log)
	container.AlertRepo = alerts.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
