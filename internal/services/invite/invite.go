// Package invite рассылает новым аккаунтам приглашение задать пароль.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/password"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/lib/smtp"
	"github.com/magabrotheeeer/finance-events/internal/models"
)

const (
	sendTimeout = 30 * time.Second
	defaultTTL  = 72 * time.Hour
	subject     = "Defina sua senha"
)

// ErrNoRecipient возвращается, если у аккаунта нет e-mail.
var ErrNoRecipient = errors.New("account has no email")

// Repository хранит приглашения.
type Repository interface {
	CreateInvite(ctx context.Context, inv models.PasswordInvite) error
}

// Service создаёт приглашение и отправляет письмо со ссылкой.
type Service struct {
	log       *slog.Logger
	repo      Repository
	transport smtp.TransportInterface
	cfg       config.Invite
	now       func() time.Time
	wg        sync.WaitGroup
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository, transport smtp.TransportInterface, cfg config.Invite) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &Service{
		log:       log,
		repo:      repo,
		transport: transport,
		cfg:       cfg,
		now:       time.Now,
	}
}

// InviteAsync запускает отправку приглашения в фоне. Отмена ctx вызывающего на неё не влияет,
// ошибки только логируются.
func (s *Service) InviteAsync(ctx context.Context, account models.Account) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		if err := s.Invite(ctx, account); err != nil {
			s.log.Error("failed to send password invite",
				slog.String("account_id", account.ID),
				sl.Err(err),
			)
		}
	}()
}

// Wait дожидается завершения всех запущенных приглашений.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Invite синхронно создаёт приглашение и отправляет письмо.
func (s *Service) Invite(ctx context.Context, account models.Account) error {
	const op = "services.invite.Invite"

	if account.Email == "" {
		return fmt.Errorf("%s: %w", op, ErrNoRecipient)
	}

	token, err := password.NewToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.GetHash(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	inv := models.PasswordInvite{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err = s.repo.CreateInvite(ctx, inv); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link, err := s.link(inv.ID, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = smtp.SendMail(client, s.transport.Sender(), account.Email, subject, s.body(account, link, inv.ExpiresAt)); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			s.log.Debug("failed to close smtp client", sl.Err(closeErr))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("password invite sent",
		slog.String("account_id", account.ID),
		slog.String("invite_id", inv.ID),
	)
	return nil
}

func (s *Service) link(inviteID, token string) (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("invite", inviteID)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Service) body(account models.Account, link string, expiresAt time.Time) string {
	name := account.Name
	if name == "" {
		name = account.Email
	}
	return fmt.Sprintf("Olá, %s!\n\nSua conta foi criada. Para definir sua senha, acesse:\n%s\n\nO link é válido até %s.",
		name, link, expiresAt.Format("02/01/2006 15:04 MST"))
}
