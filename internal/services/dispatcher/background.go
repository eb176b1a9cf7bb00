package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/models"
)

// EventDispatcher - всё, что умеет разослать событие подписчикам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType models.EventType, payload any) Result
}

// Background выполняет рассылку в отдельной горутине и сразу возвращает управление.
// Горутина отвязана от отмены ctx вызывающего. Wait дожидается всех начатых рассылок.
type Background struct {
	log  *slog.Logger
	next EventDispatcher
	wg   sync.WaitGroup
}

// NewBackground оборачивает next фоновым запуском.
func NewBackground(log *slog.Logger, next EventDispatcher) *Background {
	return &Background{log: log, next: next}
}

// Dispatch ставит рассылку в фон. Возвращаемый Result содержит только Queued=true.
func (b *Background) Dispatch(ctx context.Context, eventType models.EventType, payload any) Result {
	const op = "services.dispatcher.Background.Dispatch"

	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		res := b.next.Dispatch(detached, eventType, payload)
		if res.Subscribers > 0 {
			b.log.Debug("background dispatch finished",
				sl.Op(op),
				slog.String("evento", string(eventType)),
				slog.Int("delivered", res.Delivered),
				slog.Int("failed", res.Failed),
			)
		}
	}()
	return Result{Queued: true}
}

// Wait блокируется до завершения всех рассылок, запущенных через Dispatch.
func (b *Background) Wait() {
	b.wg.Wait()
}
