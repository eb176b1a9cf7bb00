package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

// AppendSale добавляет запись в журнал продаж. Журнал только дополняется.
func (s *Storage) AppendSale(ctx context.Context, e models.SaleEntry) error {
	const op = "storage.AppendSale"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO sales (id, account_email, plan_tier, duration_label, amount, transaction_id, product_label, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.DB.ExecContext(ctx, query, e.ID, e.AccountEmail, e.PlanTier, e.DurationLabel,
		e.Amount.StringFixed(2), e.TransactionID, e.ProductLabel, e.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// ListSalesByEmail возвращает продажи аккаунта от новых к старым.
func (s *Storage) ListSalesByEmail(ctx context.Context, email string) ([]models.SaleEntry, error) {
	const op = "storage.ListSalesByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, account_email, plan_tier, duration_label, amount, transaction_id, product_label, created_at
			  FROM sales
			  WHERE LOWER(account_email) = LOWER($1)
			  ORDER BY created_at DESC, id`
	rows, err := s.DB.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var res []models.SaleEntry
	for rows.Next() {
		var e models.SaleEntry
		if err := rows.Scan(&e.ID, &e.AccountEmail, &e.PlanTier, &e.DurationLabel, &e.Amount,
			&e.TransactionID, &e.ProductLabel, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
