package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleEntry - неизменяемая запись журнала продаж.
type SaleEntry struct {
	ID            string          `json:"id"`
	AccountEmail  string          `json:"account_email"`
	PlanTier      PlanTier        `json:"plan_tier"`
	DurationLabel string          `json:"duration_label"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	ProductLabel  string          `json:"product_label"`
	CreatedAt     time.Time       `json:"created_at"`
}
