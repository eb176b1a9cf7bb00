// Package reminder находит встречи, которые начнутся в ближайшее время,
// и один раз рассылает по каждой уведомление подписчикам события compromisso.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
)

// DefaultWindow - насколько вперёд сканер ищет встречи.
const DefaultWindow = time.Hour

// сколько встреч рассылается одновременно за один проход
const maxConcurrentReminders = 8

var timeLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// Repository - хранилище встреч.
type Repository interface {
	ListPendingReminders(ctx context.Context) ([]models.Appointment, error)
	ClaimReminder(ctx context.Context, id string) (bool, error)
}

// SubscriptionSource отдаёт подписчиков события.
type SubscriptionSource interface {
	Subscribers(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error)
}

// Sender выполняет HTTP-рассылку готового тела.
type Sender interface {
	Send(ctx context.Context, subs []models.WebhookSubscription, body []byte) dispatcher.Result
}

// Service - сканер напоминаний.
type Service struct {
	log     *slog.Logger
	repo    Repository
	subs    SubscriptionSource
	sender  Sender
	metrics metrics.Metrics
	loc     *time.Location
	window  time.Duration
	now     func() time.Time
}

// New создаёт сканер. loc - фиксированный часовой пояс, в котором записаны дата и время встреч.
func New(log *slog.Logger, repo Repository, subs SubscriptionSource, sender Sender, m metrics.Metrics, loc *time.Location, window time.Duration) *Service {
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		log:     log,
		repo:    repo,
		subs:    subs,
		sender:  sender,
		metrics: m,
		loc:     loc,
		window:  window,
		now:     time.Now,
	}
}

// Run выполняет один проход сканера и возвращает число встреч, по которым отправлено напоминание.
// Ошибка загрузки встреч или подписок прерывает проход.
func (s *Service) Run(ctx context.Context) (int, error) {
	const op = "services.reminder.Run"
	log := s.log.With(sl.Op(op))

	pending, err := s.repo.ListPendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: load appointments: %w", op, err)
	}
	subs, err := s.subs.Subscribers(ctx, models.EventAppointment)
	if err != nil {
		return 0, fmt.Errorf("%s: load subscriptions: %w", op, err)
	}

	now := s.now().In(s.loc)
	deadline := now.Add(s.window)

	type reminder struct {
		id   string
		at   time.Time
		body []byte
	}
	var claimed []reminder
	for _, appt := range pending {
		at, err := s.startsAt(appt)
		if err != nil {
			log.Debug("skipping appointment with malformed schedule", slog.String("appointment_id", appt.ID), sl.Err(err))
			continue
		}
		if !at.After(now) || at.After(deadline) {
			continue
		}
		body, err := json.Marshal(appt)
		if err != nil {
			log.Error("failed to encode appointment", slog.String("appointment_id", appt.ID), sl.Err(err))
			continue
		}

		ok, err := s.repo.ClaimReminder(ctx, appt.ID)
		if err != nil {
			log.Error("failed to mark reminder as sent", slog.String("appointment_id", appt.ID), sl.Err(err))
			continue
		}
		if !ok {
			log.Debug("reminder already claimed by another run", slog.String("appointment_id", appt.ID))
			continue
		}
		claimed = append(claimed, reminder{id: appt.ID, at: at, body: body})
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentReminders)
	for _, r := range claimed {
		g.Go(func() error {
			res := s.sender.Send(ctx, subs, r.body)
			log.Info("reminder sent",
				slog.String("appointment_id", r.id),
				slog.Time("starts_at", r.at),
				slog.Int("subscribers", res.Subscribers),
				slog.Int("failed", res.Failed),
			)
			return nil
		})
	}
	_ = g.Wait()

	count := len(claimed)
	s.metrics.RecordRemindersSent(count)
	return count, nil
}

// startsAt собирает момент начала встречи из даты и времени в часовом поясе сканера.
func (s *Service) startsAt(appt models.Appointment) (time.Time, error) {
	date := strings.TrimSpace(appt.Date)
	clock := strings.TrimSpace(appt.Time)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("missing date or time")
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, date+" "+clock, s.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
