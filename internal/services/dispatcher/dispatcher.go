// Package dispatcher рассылает внутренние бизнес-события всем вебхукам, подписанным на их тип.
//
// Доставка best-effort: каждая попытка независима, ограничена собственным таймаутом,
// ошибки логируются и считаются, но вызывающему не возвращаются.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/models"
)

const (
	userAgent        = "finance-events-dispatcher/1.0"
	maxResponseBytes = 64 << 10
)

// SubscriptionSource отдаёт подписчиков события.
type SubscriptionSource interface {
	Subscribers(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error)
}

// Result - итог одной рассылки. Нужен только для логов и тестов.
type Result struct {
	Subscribers int
	Delivered   int
	Failed      int
	Queued      bool
}

// Dispatcher выполняет HTTP-рассылку.
type Dispatcher struct {
	log         *slog.Logger
	subs        SubscriptionSource
	client      *http.Client
	metrics     metrics.Metrics
	timeout     time.Duration
	maxParallel int
	now         func() time.Time
}

// New создаёт Dispatcher. Если client == nil, используется http.Client без общего таймаута:
// каждая доставка ограничена cfg.Timeout через контекст.
func New(log *slog.Logger, subs SubscriptionSource, m metrics.Metrics, cfg config.Dispatcher, client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &Dispatcher{
		log:         log,
		subs:        subs,
		client:      client,
		metrics:     m,
		timeout:     timeout,
		maxParallel: maxParallel,
		now:         time.Now,
	}
}

// NewEvent собирает конверт события с текущим временем в RFC3339.
func NewEvent(eventType models.EventType, payload any, now time.Time) models.Event {
	return models.Event{
		EventType: eventType,
		Data:      payload,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// Dispatch отправляет конверт {evento, dados, timestamp} каждому подписчику eventType.
// Если подписчиков нет, возвращается сразу.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType models.EventType, payload any) Result {
	const op = "services.dispatcher.Dispatch"
	log := d.log.With(sl.Op(op), slog.String("evento", string(eventType)))

	subs, err := d.subs.Subscribers(ctx, eventType)
	if err != nil {
		log.Error("failed to load subscriptions", sl.Err(err))
		return Result{}
	}
	if len(subs) == 0 {
		log.Debug("no subscribers")
		return Result{}
	}

	body, err := json.Marshal(NewEvent(eventType, payload, d.now()))
	if err != nil {
		log.Error("failed to encode event", sl.Err(err))
		return Result{Subscribers: len(subs), Failed: len(subs)}
	}
	return d.Send(ctx, subs, body)
}

// Deliver рассылает уже собранный конверт события, пришедший из очереди.
func (d *Dispatcher) Deliver(ctx context.Context, body []byte) error {
	const op = "services.dispatcher.Deliver"

	var envelope models.Event
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s: decode event: %w", op, err)
	}
	if !envelope.EventType.Valid() {
		return fmt.Errorf("%s: unknown event type %q", op, envelope.EventType)
	}
	subs, err := d.subs.Subscribers(ctx, envelope.EventType)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res := d.Send(ctx, subs, body)
	d.log.Info("queued event delivered",
		sl.Op(op),
		slog.String("evento", string(envelope.EventType)),
		slog.Int("subscribers", res.Subscribers),
		slog.Int("delivered", res.Delivered),
		slog.Int("failed", res.Failed),
	)
	return nil
}

// Send выполняет POST body на URL каждой подписки параллельно, не более maxParallel одновременно.
// Доставки отвязаны от отмены ctx и ограничены собственным таймаутом.
func (d *Dispatcher) Send(ctx context.Context, subs []models.WebhookSubscription, body []byte) Result {
	res := Result{Subscribers: len(subs)}
	if len(subs) == 0 {
		return res
	}

	base := context.WithoutCancel(ctx)
	var delivered, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.maxParallel)

	for _, sub := range subs {
		g.Go(func() error {
			if err := d.post(base, sub.URL, body); err != nil {
				failed.Add(1)
				d.metrics.RecordDelivery(string(sub.EventType), "failed")
				d.log.Warn("webhook delivery failed",
					slog.String("subscription_id", sub.ID),
					slog.String("url", sub.URL),
					slog.String("evento", string(sub.EventType)),
					sl.Err(err),
				)
				return nil
			}
			delivered.Add(1)
			d.metrics.RecordDelivery(string(sub.EventType), "delivered")
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = int(delivered.Load())
	res.Failed = int(failed.Load())
	return res
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
