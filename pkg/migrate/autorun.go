package migrate

import (
	"context"

	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/logger"
)

// MaybeRunDev applies pending migrations from DefaultDir at API start when
// PHENOM_AUTO_MIGRATE is on and the app is not running in prod. In prod the
// schema only moves through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client Database) error {
	return autoRun(ctx, cfg, logg, client, DefaultDir)
}

func autoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client Database, dir string) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"dir": dir, "dialect": client.Dialect()})
	if cfg.App.IsProd() {
		logg.Warn(ctx, "migrate.autorun_skipped_in_prod")
		return nil
	}

	if err := ValidateDir(dir); err != nil {
		return err
	}
	runner, err := NewRunner(client, dir)
	if err != nil {
		return err
	}
	before, err := runner.Version(ctx)
	if err != nil {
		return err
	}
	if err := runner.Up(ctx); err != nil {
		return err
	}
	after, err := runner.Version(ctx)
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"from_version": before, "to_version": after}), "migrate.autorun_complete")
	return nil
}
