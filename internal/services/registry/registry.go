// Package registry управляет подписками вебхуков на внутренние события.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/storage/repository"
)

var (
	// ErrInvalidEventType - тип события не из фиксированного набора.
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrEmptyURL - пустой URL подписки.
	ErrEmptyURL = errors.New("url must not be empty")
	// ErrNotFound - подписка с таким id не найдена.
	ErrNotFound = errors.New("subscription not found")
)

const cacheKeyPrefix = "webhooks:"

// Repository - хранилище подписок.
type Repository interface {
	ListWebhooks(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error)
	CreateWebhook(ctx context.Context, w models.WebhookSubscription) error
	UpdateWebhook(ctx context.Context, id string, patch models.SubscriptionPatch) (before, after *models.WebhookSubscription, err error)
	DeleteWebhook(ctx context.Context, id string) (*models.WebhookSubscription, error)
}

// Cache - кеш списков подписок по типу события.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service реализует операции реестра подписок.
type Service struct {
	log      *slog.Logger
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// New создаёт Service. cache может быть nil - тогда списки всегда читаются из хранилища.
func New(log *slog.Logger, repo Repository, cache Cache, cacheTTL time.Duration) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func cacheKey(eventType models.EventType) string {
	return cacheKeyPrefix + string(eventType)
}

// List возвращает подписки на eventType; пустая строка - все подписки.
func (s *Service) List(ctx context.Context, eventType string) ([]models.WebhookSubscription, error) {
	const op = "services.registry.List"
	if eventType == "" {
		subs, err := s.repo.ListWebhooks(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return subs, nil
	}
	et := models.EventType(eventType)
	if !et.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEventType)
	}
	subs, err := s.Subscribers(ctx, et)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// Subscribers возвращает подписчиков события, используя кеш.
// Ошибки кеша логируются, чтение переходит к хранилищу.
func (s *Service) Subscribers(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error) {
	const op = "services.registry.Subscribers"
	key := cacheKey(eventType)

	if s.cache != nil {
		var cached []models.WebhookSubscription
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("failed to read subscriptions from cache", sl.Op(op), slog.String("key", key), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	subs, err := s.repo.ListWebhooks(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, subs, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache subscriptions", sl.Op(op), slog.String("key", key), sl.Err(err))
		}
	}
	return subs, nil
}

// Create регистрирует новую подписку.
func (s *Service) Create(ctx context.Context, url, eventType string) (*models.WebhookSubscription, error) {
	const op = "services.registry.Create"

	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyURL)
	}
	et := models.EventType(eventType)
	if !et.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEventType)
	}

	sub := models.WebhookSubscription{
		ID:        uuid.NewString(),
		URL:       url,
		EventType: et,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateWebhook(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, et)
	return &sub, nil
}

// Update частично изменяет подписку.
func (s *Service) Update(ctx context.Context, id string, patch models.SubscriptionPatch) (*models.WebhookSubscription, error) {
	const op = "services.registry.Update"

	if patch.URL != nil {
		trimmed := strings.TrimSpace(*patch.URL)
		if trimmed == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrEmptyURL)
		}
		patch.URL = &trimmed
	}
	if patch.EventType != nil && !patch.EventType.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEventType)
	}

	before, after, err := s.repo.UpdateWebhook(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, before.EventType, after.EventType)
	return after, nil
}

// Delete удаляет подписку.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "services.registry.Delete"

	deleted, err := s.repo.DeleteWebhook(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, op, deleted.EventType)
	return nil
}

func (s *Service) invalidate(ctx context.Context, op string, eventTypes ...models.EventType) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(eventTypes))
	for _, et := range eventTypes {
		keys = append(keys, cacheKey(et))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Error("failed to invalidate subscriptions cache", sl.Op(op), sl.Err(err))
	}
}
