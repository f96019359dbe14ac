package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sandroescobar/lovemenow-sub001/pkg/config"
	"github.com/sandroescobar/lovemenow-sub001/pkg/db/models"
	"github.com/sandroescobar/lovemenow-sub001/pkg/logger"
)

// AllModels lists every table the schema migrator manages, in dependency order.
func AllModels() []any {
	return []any{
		&models.Product{},
		&models.InventoryItem{},
		&models.CartItem{},
		&models.WishlistItem{},
		&models.DiscountCode{},
		&models.Order{},
		&models.OrderItem{},
		&models.DeliveryDispatch{},
	}
}

// Run applies the schema for every managed model.
func Run(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("gorm db is required")
	}
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrating schema: %w", err)
	}
	return nil
}

// MaybeRunDev migrates the schema automatically when the app is running in dev
// mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, gdb *gorm.DB) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "running schema migrations (dev auto-run)")

	if err := Run(gdb); err != nil {
		return err
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}
