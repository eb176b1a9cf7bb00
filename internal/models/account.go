// Package models содержит доменные структуры сервиса событий: аккаунты и их тарифы,
// записи о продажах, подписки на вебхуки, встречи пользователей и конверт исходящего события.
package models

import "time"

// PlanTier - тариф, выданный аккаунту.
type PlanTier string

const (
	// PlanNone - тариф отсутствует, срок действия всегда nil.
	PlanNone PlanTier = "none"
	// PlanTrial - пробный период.
	PlanTrial PlanTier = "trial"
	// PlanBronze - базовый платный тариф.
	PlanBronze PlanTier = "bronze"
	// PlanOuro - максимальный платный тариф.
	PlanOuro PlanTier = "ouro"
)

// Valid сообщает, входит ли тариф в известный набор.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanNone, PlanTrial, PlanBronze, PlanOuro:
		return true
	}
	return false
}

// Account представляет платящего пользователя вместе с его текущим тарифом.
// Инвариант: PlanTier == PlanNone => PlanExpiresAt == nil.
type Account struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	PlanTier      PlanTier   `json:"plan_tier"`
	PlanExpiresAt *time.Time `json:"plan_expires_at"`
	IsAdmin       bool       `json:"is_admin"`
	Blocked       bool       `json:"blocked"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PasswordInvite - одноразовое приглашение задать пароль. Хранится только хеш токена.
type PasswordInvite struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
