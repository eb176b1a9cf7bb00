package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/rabbitmq"
)

// Publisher реализует тот же контракт Dispatch, но кладёт конверт в RabbitMQ.
// HTTP-рассылку выполняет процесс sender через Dispatcher.Deliver.
type Publisher struct {
	log *slog.Logger
	ch  rabbitmq.Channel
	now func() time.Time
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(log *slog.Logger, ch rabbitmq.Channel) *Publisher {
	return &Publisher{
		log: log,
		ch:  ch,
		now: time.Now,
	}
}

// Dispatch публикует событие. Ошибка публикации только логируется.
func (p *Publisher) Dispatch(_ context.Context, eventType models.EventType, payload any) Result {
	const op = "services.dispatcher.Publisher.Dispatch"

	event := NewEvent(eventType, payload, p.now())
	if err := rabbitmq.PublishMessage(p.ch, rabbitmq.EventsExchange, rabbitmq.FanoutRoutingKey, event); err != nil {
		p.log.Error("failed to publish event", sl.Op(op), slog.String("evento", string(eventType)), sl.Err(err))
		return Result{}
	}
	return Result{Queued: true}
}
