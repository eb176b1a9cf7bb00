package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

const accountColumns = `id, email, name, phone, plan_tier, plan_expires_at, is_admin, blocked, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	a := &models.Account{}
	var expiresAt sql.NullTime
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.PlanTier, &expiresAt,
		&a.IsAdmin, &a.Blocked, &a.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.PlanExpiresAt = &t
	}
	return a, nil
}

// FindAccountByEmail ищет аккаунт по email без учёта регистра.
func (s *Storage) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.FindAccountByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// GetAccount возвращает аккаунт по id.
func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.GetAccount"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return a, nil
}

// CreateAccount сохраняет новый аккаунт. Если аккаунт с таким email уже есть,
// возвращается ErrAlreadyExists.
func (s *Storage) CreateAccount(ctx context.Context, a models.Account) error {
	const op = "storage.CreateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO accounts (id, email, name, phone, plan_tier, plan_expires_at, is_admin, blocked, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := s.DB.ExecContext(ctx, query, a.ID, a.Email, a.Name, a.Phone, a.PlanTier, a.PlanExpiresAt,
		a.IsAdmin, a.Blocked, a.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// UpdateEntitlement перезаписывает тариф и срок действия аккаунта, а также имя и телефон.
func (s *Storage) UpdateEntitlement(ctx context.Context, id string, tier models.PlanTier, expiresAt *time.Time, name, phone string) error {
	const op = "storage.UpdateEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE accounts
			  SET plan_tier = $2, plan_expires_at = $3, name = $4, phone = $5
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, tier, expiresAt, name, phone)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ClearEntitlement сбрасывает тариф аккаунта в none. Возвращает false, если аккаунта нет.
func (s *Storage) ClearEntitlement(ctx context.Context, email string) (bool, error) {
	const op = "storage.ClearEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE accounts
			  SET plan_tier = 'none', plan_expires_at = NULL
			  WHERE LOWER(email) = LOWER($1)`
	res, err := s.DB.ExecContext(ctx, query, email)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
