// Package scheduler запускает сканер напоминаний по таймеру.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/finance-events/internal/cache"
	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
	"github.com/magabrotheeeer/finance-events/internal/services/reminder"
	"github.com/magabrotheeeer/finance-events/internal/storage/repository"
)

const defaultInterval = 5 * time.Minute

// Scanner - один проход сканера напоминаний.
type Scanner interface {
	Run(ctx context.Context) (int, error)
}

// App представляет приложение планировщика.
type App struct {
	scanner  Scanner
	interval time.Duration
	db       *repository.Storage
	cache    *cache.Cache
	logger   *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{db: db, logger: logger, interval: cfg.Reminder.Interval}

	var listCache registry.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.cache = c
		listCache = c
	}

	m := metrics.NoopMetrics{}
	registryService := registry.New(logger, db, listCache, cfg.Cache.WebhooksTTL)
	sender := dispatcher.New(logger, registryService, m, cfg.Dispatcher, nil)
	app.scanner = reminder.New(logger, db, registryService, sender, m, cfg.ReminderLocation(), cfg.Reminder.Window)

	return app, nil
}

// Run выполняет проход сразу при старте, затем с интервалом из конфигурации до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	interval := a.interval
	if interval <= 0 {
		interval = defaultInterval
	}
	a.logger.Info("reminder scheduler started", slog.Duration("interval", interval))

	loop(ctx, a.logger, a.scanner, interval)

	a.logger.Info("shutting down scheduler service")
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}

func loop(ctx context.Context, log *slog.Logger, scanner Scanner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tick(ctx, log, scanner)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func tick(ctx context.Context, log *slog.Logger, scanner Scanner) {
	n, err := scanner.Run(ctx)
	if err != nil {
		log.Error("reminder run failed", sl.Err(err))
		return
	}
	if n > 0 {
		log.Info("reminders sent", slog.Int("count", n))
		return
	}
	log.Debug("no reminders due")
}
