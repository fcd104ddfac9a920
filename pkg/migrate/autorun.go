package migrate

import (
	"context"
	"fmt"

	"github.com/cropchain/cropchain-backend/pkg/config"
	"github.com/cropchain/cropchain-backend/pkg/db"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when the sql document
// store is active, the app runs in dev and CROPCHAIN_AUTO_MIGRATE is set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DocStore.UsesSQL() || !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	if client == nil {
		return fmt.Errorf("database client required for auto-migrate")
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := DialectFor(cfg.DB)
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})
		logg.Info(ctx, "migrate.autorun.start")
	}
	if err := Run(ctx, sqlDB, dialect, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "migrate.autorun.done")
	}
	return nil
}
