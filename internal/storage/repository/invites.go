package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

// CreateInvite сохраняет приглашение задать пароль.
func (s *Storage) CreateInvite(ctx context.Context, inv models.PasswordInvite) error {
	const op = "storage.CreateInvite"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO password_invites (id, account_id, token_hash, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query, inv.ID, inv.AccountID, inv.TokenHash, inv.ExpiresAt, inv.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}
