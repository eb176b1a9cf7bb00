// Package sender читает события из очереди RabbitMQ и рассылает их подписчикам.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/finance-events/internal/cache"
	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/rabbitmq"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
	"github.com/magabrotheeeer/finance-events/internal/storage/repository"
)

// App - потребитель очереди событий.
type App struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	db         *repository.Storage
	cache      *cache.Cache
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// New подключается к хранилищу и брокеру.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{db: db, logger: logger}

	var listCache registry.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.cache = c
		listCache = c
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.conn = conn

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EventsExchange, rabbitmq.EventQueues())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.ch = ch

	registryService := registry.New(logger, db, listCache, cfg.Cache.WebhooksTTL)
	app.dispatcher = dispatcher.New(logger, registryService, metrics.NoopMetrics{}, cfg.Dispatcher, nil)

	return app, nil
}

// Run читает очередь до отмены ctx и дожидается обработки уже полученных сообщений.
func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.FanoutQueue, a.logger, a.dispatcher.Deliver)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", rabbitmq.FanoutQueue), sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("sender consuming", slog.String("queue", rabbitmq.FanoutQueue))

	err = waitConsumer(ctx, done)
	if err != nil {
		a.logger.Error("consumer stopped unexpectedly", slog.String("queue", rabbitmq.FanoutQueue), sl.Err(err))
	} else {
		a.logger.Info("sender service shutting down gracefully")
	}

	a.close()
	return err
}

// ErrConsumerStopped - потребитель завершился сам, например после обрыва соединения с брокером.
var ErrConsumerStopped = errors.New("consumer stopped")

// waitConsumer ждёт отмены ctx и завершения потребителя.
// Если потребитель остановился раньше отмены ctx, возвращается ErrConsumerStopped.
func waitConsumer(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-ctx.Done():
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return ErrConsumerStopped
	}
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
