// Package payment переводит события платёжного провайдера в изменения тарифа аккаунта,
// ведёт журнал продаж и публикует событие о продаже подписчикам.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finance-events/internal/lib/plan"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
	"github.com/magabrotheeeer/finance-events/internal/storage/repository"
)

var (
	// ErrEmailRequired - в данных покупки нет email покупателя.
	ErrEmailRequired = errors.New("customer email is required")
	// ErrInvalidEmail - email покупателя содержит управляющие символы или пробелы.
	ErrInvalidEmail = errors.New("customer email is invalid")
)

const (
	ActionUserCreated = "user_created"
	ActionUserUpdated = "user_updated"
	ActionRevoked     = "plan_revoked"
	ActionNoAccount   = "no_account"
)

// Repository - хранилище аккаунтов и журнала продаж.
type Repository interface {
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, a models.Account) error
	UpdateEntitlement(ctx context.Context, id string, tier models.PlanTier, expiresAt *time.Time, name, phone string) error
	ClearEntitlement(ctx context.Context, email string) (bool, error)
	AppendSale(ctx context.Context, e models.SaleEntry) error
}

// EventDispatcher рассылает события подписчикам.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType models.EventType, payload any) dispatcher.Result
}

// Inviter отправляет приглашение задать пароль новому аккаунту. Не блокирует вызывающего.
type Inviter interface {
	InviteAsync(ctx context.Context, account models.Account)
}

// ProvisionResult - итог выдачи тарифа.
type ProvisionResult struct {
	UserID    string
	Action    string
	Tier      models.PlanTier
	ExpiresAt time.Time
}

// Service выдаёт и отзывает тарифы.
type Service struct {
	log        *slog.Logger
	repo       Repository
	dispatcher EventDispatcher
	inviter    Inviter
	metrics    metrics.Metrics
	now        func() time.Time
}

// New создаёт Service. inviter может быть nil - тогда приглашения не отправляются.
func New(log *slog.Logger, repo Repository, d EventDispatcher, inviter Inviter, m metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	return &Service{
		log:        log,
		repo:       repo,
		dispatcher: d,
		inviter:    inviter,
		metrics:    m,
		now:        time.Now,
	}
}

// Provision обрабатывает одобренную покупку или продление: классифицирует тариф,
// создаёт или обновляет аккаунт, пишет журнал продаж и публикует venda_realizada.
// Ошибка журнала и ошибки рассылки не прерывают обработку.
func (s *Service) Provision(ctx context.Context, data Data) (ProvisionResult, error) {
	const op = "services.payment.Provision"

	email := NormalizeEmail(data.Customer.Email)
	if email == "" {
		return ProvisionResult{}, fmt.Errorf("%s: %w", op, ErrEmailRequired)
	}
	if !ValidEmail(email) {
		return ProvisionResult{}, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}
	log := s.log.With(sl.Op(op), slog.String("email", email))

	amountMinor := data.AmountMinorUnits()
	tier, days := plan.Classify(data.Offer.Name, data.Product.Name, amountMinor)
	now := s.now().UTC()
	expiresAt := now.Add(time.Duration(days) * 24 * time.Hour)

	incoming := models.Account{
		Email: email,
		Name:  strings.TrimSpace(data.Customer.Name),
		Phone: strings.TrimSpace(data.Customer.Phone),
	}
	account, action, err := s.upsert(ctx, incoming, tier, expiresAt, now)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.RecordEntitlementChange(action, string(tier))
	log.Info("entitlement granted",
		slog.String("user_id", account.ID),
		slog.String("action", action),
		slog.String("tier", string(tier)),
		slog.Int("days", days),
	)

	if action == ActionUserCreated {
		s.onAccountCreated(ctx, *account)
	}

	amount := data.AmountValue()
	entry := models.SaleEntry{
		ID:            uuid.NewString(),
		AccountEmail:  email,
		PlanTier:      tier,
		DurationLabel: plan.DurationLabel(days),
		Amount:        amount,
		TransactionID: data.TransactionID(),
		ProductLabel:  data.ProductLabel(),
		CreatedAt:     now,
	}
	if err := s.repo.AppendSale(ctx, entry); err != nil {
		s.metrics.RecordLedgerFailure()
		log.Error("failed to append sale to ledger", slog.String("transaction_id", entry.TransactionID), sl.Err(err))
	}

	_ = s.dispatcher.Dispatch(ctx, models.EventSaleCompleted, models.SaleEvent{
		UserID:        account.ID,
		Email:         account.Email,
		Name:          account.Name,
		Phone:         account.Phone,
		PlanTier:      tier,
		Amount:        amount.StringFixed(2),
		Product:       entry.ProductLabel,
		TransactionID: entry.TransactionID,
	})

	return ProvisionResult{
		UserID:    account.ID,
		Action:    action,
		Tier:      tier,
		ExpiresAt: expiresAt,
	}, nil
}

// upsert обновляет существующий аккаунт или создаёт новый.
// Если создание проиграло гонку параллельному запросу, аккаунт перечитывается и обновляется.
func (s *Service) upsert(ctx context.Context, in models.Account, tier models.PlanTier, expiresAt, now time.Time) (*models.Account, string, error) {
	existing, err := s.repo.FindAccountByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return s.update(ctx, existing, in, tier, expiresAt)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, "", err
	}

	account := models.Account{
		ID:            uuid.NewString(),
		Email:         in.Email,
		Name:          in.Name,
		Phone:         in.Phone,
		PlanTier:      tier,
		PlanExpiresAt: &expiresAt,
		Blocked:       false,
		CreatedAt:     now,
	}
	err = s.repo.CreateAccount(ctx, account)
	if err == nil {
		return &account, ActionUserCreated, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return nil, "", err
	}

	existing, err = s.repo.FindAccountByEmail(ctx, in.Email)
	if err != nil {
		return nil, "", err
	}
	return s.update(ctx, existing, in, tier, expiresAt)
}

func (s *Service) update(ctx context.Context, existing *models.Account, in models.Account, tier models.PlanTier, expiresAt time.Time) (*models.Account, string, error) {
	updated := *existing
	if updated.Name == "" && in.Name != "" {
		updated.Name = in.Name
	}
	if updated.Phone == "" && in.Phone != "" {
		updated.Phone = in.Phone
	}
	updated.PlanTier = tier
	updated.PlanExpiresAt = &expiresAt

	if err := s.repo.UpdateEntitlement(ctx, updated.ID, tier, &expiresAt, updated.Name, updated.Phone); err != nil {
		return nil, "", err
	}
	return &updated, ActionUserUpdated, nil
}

func (s *Service) onAccountCreated(ctx context.Context, account models.Account) {
	_ = s.dispatcher.Dispatch(ctx, models.EventAccountCreated, models.AccountCreatedEvent{
		UserID:    account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Phone:     account.Phone,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	})
	if s.inviter != nil {
		s.inviter.InviteAsync(ctx, account)
	}
}

// Revoke сбрасывает тариф аккаунта при отмене подписки или возврате.
// Отсутствие аккаунта - не ошибка: возвращается found=false.
func (s *Service) Revoke(ctx context.Context, email string) (bool, error) {
	const op = "services.payment.Revoke"

	email = NormalizeEmail(email)
	log := s.log.With(sl.Op(op), slog.String("email", email))
	if email == "" {
		log.Warn("cancellation without customer email, nothing to revoke")
		return false, nil
	}

	found, err := s.repo.ClearEntitlement(ctx, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		log.Info("no account for cancellation, skipping")
		return false, nil
	}
	s.metrics.RecordEntitlementChange(ActionRevoked, string(models.PlanNone))
	log.Info("entitlement revoked")
	return true, nil
}
