package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/finance-events/internal/cache"
	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/jwt"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/lib/smtp"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/migrations"
	"github.com/magabrotheeeer/finance-events/internal/rabbitmq"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
	"github.com/magabrotheeeer/finance-events/internal/services/invite"
	"github.com/magabrotheeeer/finance-events/internal/services/payment"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
	"github.com/magabrotheeeer/finance-events/internal/services/reminder"
	"github.com/magabrotheeeer/finance-events/internal/storage/repository"
)

// MetricsNamespace - префикс всех метрик сервиса.
const MetricsNamespace = "finance_events"

const shutdownTimeout = 15 * time.Second

// App - HTTP API вместе с ресурсами, которые нужно закрыть при остановке.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *repository.Storage
	cache   *cache.Cache
	conn    *amqp.Connection
	ch      *amqp.Channel
	invites *invite.Service
	events  *dispatcher.Background
}

// New подключается к хранилищу, применяет миграции и собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPrometheus(reg, MetricsNamespace)

	var listCache registry.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.cache = c
		listCache = c
	} else {
		logger.Warn("redis address is empty, subscription lists are not cached")
	}

	registryService := registry.New(logger, db, listCache, cfg.Cache.WebhooksTTL)
	httpDispatcher := dispatcher.New(logger, registryService, m, cfg.Dispatcher, nil)

	var events payment.EventDispatcher
	switch cfg.Dispatcher.Mode {
	case config.DispatchModeDirect, "":
		app.events = dispatcher.NewBackground(logger, httpDispatcher)
		events = app.events
	case config.DispatchModeQueue:
		if err = app.connectQueue(ctx, cfg); err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = dispatcher.NewPublisher(logger, app.ch)
	default:
		app.close()
		return nil, fmt.Errorf("%s: unknown dispatcher mode %q", op, cfg.Dispatcher.Mode)
	}

	var inviter payment.Inviter
	if cfg.SMTP.Host != "" {
		app.invites = invite.New(logger, db, smtp.NewTransport(cfg.SMTP, logger), cfg.Invite)
		inviter = app.invites
	} else {
		logger.Warn("smtp host is empty, password invites are disabled")
	}

	paymentService := payment.New(logger, db, events, inviter, m)
	scanner := reminder.New(logger, db, registryService, httpDispatcher, m, cfg.ReminderLocation(), cfg.Reminder.Window)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:         logger,
		Payments:       paymentService,
		PaymentWebhook: cfg.PaymentWebhook,
		Registry:       registryService,
		Scanner:        scanner,
		Tokens:         jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Storage:        db,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) connectQueue(ctx context.Context, cfg *config.Config) error {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EventsExchange, rabbitmq.EventQueues())
	if err != nil {
		_ = conn.Close()
		return err
	}
	a.conn, a.ch = conn, ch
	return nil
}

// Run запускает HTTP-сервер и блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	if a.events != nil {
		a.events.Wait()
	}
	if a.invites != nil {
		a.invites.Wait()
	}
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
