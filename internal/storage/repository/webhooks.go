package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

const webhookColumns = `id, url, evento, criado_em`

// ListWebhooks возвращает подписки на событие eventType. Пустой eventType - все подписки.
func (s *Storage) ListWebhooks(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error) {
	const op = "storage.ListWebhooks"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + webhookColumns + ` FROM webhook_subscriptions
			  WHERE $1::text = '' OR evento = $1::text
			  ORDER BY criado_em, id`
	rows, err := s.DB.QueryContext(ctx, query, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	res := make([]models.WebhookSubscription, 0)
	for rows.Next() {
		var w models.WebhookSubscription
		if err := rows.Scan(&w.ID, &w.URL, &w.EventType, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// GetWebhook возвращает подписку по id.
func (s *Storage) GetWebhook(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	const op = "storage.GetWebhook"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var w models.WebhookSubscription
	query := `SELECT ` + webhookColumns + ` FROM webhook_subscriptions WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.URL, &w.EventType, &w.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &w, nil
}

// CreateWebhook сохраняет новую подписку.
func (s *Storage) CreateWebhook(ctx context.Context, w models.WebhookSubscription) error {
	const op = "storage.CreateWebhook"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO webhook_subscriptions (id, url, evento, criado_em) VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, w.ID, w.URL, w.EventType, w.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// UpdateWebhook применяет частичное изменение и возвращает подписку до и после него.
func (s *Storage) UpdateWebhook(ctx context.Context, id string, patch models.SubscriptionPatch) (before, after *models.WebhookSubscription, err error) {
	const op = "storage.UpdateWebhook"
	if err = checkCtx(ctx, op); err != nil {
		return nil, nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var old models.WebhookSubscription
	selectQuery := `SELECT ` + webhookColumns + ` FROM webhook_subscriptions WHERE id = $1 FOR UPDATE`
	if err = tx.QueryRowContext(ctx, selectQuery, id).Scan(&old.ID, &old.URL, &old.EventType, &old.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	updated := old
	if patch.URL != nil {
		updated.URL = *patch.URL
	}
	if patch.EventType != nil {
		updated.EventType = *patch.EventType
	}

	updateQuery := `UPDATE webhook_subscriptions SET url = $2, evento = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, id, updated.URL, updated.EventType); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return &old, &updated, nil
}

// DeleteWebhook удаляет подписку и возвращает удалённую запись.
func (s *Storage) DeleteWebhook(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	const op = "storage.DeleteWebhook"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var w models.WebhookSubscription
	query := `DELETE FROM webhook_subscriptions WHERE id = $1 RETURNING ` + webhookColumns
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.URL, &w.EventType, &w.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &w, nil
}
