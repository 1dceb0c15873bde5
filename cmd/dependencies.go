package cmd

import (
	"context"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Enzooo97/ai-trading-bot/config"
	"github.com/Enzooo97/ai-trading-bot/pkg/cache"
	"github.com/Enzooo97/ai-trading-bot/pkg/logger"
	"github.com/Enzooo97/ai-trading-bot/pkg/postgres"
)

type AppDependency struct {
	db        *postgres.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	if cfg.Log.AlertWebhookURL != "" {
		log = log.WithAlertWebhook(cfg.Log.AlertWebhookURL)
	}

	// Persistence is optional; without it backtests still run, only the
	// run history is unavailable.
	var db *postgres.DB
	if cfg.DB.Enabled {
		db, err = postgres.NewDB(cfg.DB, log)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return nil, err
		}
	} else {
		log.Info("Database persistence disabled, run history will not be stored")
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		db:        db,
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
	}, nil
}

// gormDB unwraps the optional database handle for the repository layer.
func (d *AppDependency) gormDB() *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.DB
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
