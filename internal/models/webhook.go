package models

import "time"

// EventType - тип внутреннего бизнес-события, на которое можно подписать вебхук.
type EventType string

const (
	EventAccountCreated   EventType = "criou_conta"
	EventSaleCompleted    EventType = "venda_realizada"
	EventAppointment      EventType = "compromisso"
	EventPlanExpired      EventType = "plano_expirou"
	EventTrialExpired     EventType = "trial_expirou"
	EventTrialExpiresSoon EventType = "trial_expira_1h"
)

// EventTypes возвращает фиксированный набор поддерживаемых событий.
func EventTypes() []EventType {
	return []EventType{
		EventAccountCreated,
		EventSaleCompleted,
		EventAppointment,
		EventPlanExpired,
		EventTrialExpired,
		EventTrialExpiresSoon,
	}
}

// Valid сообщает, входит ли событие в фиксированный набор.
func (e EventType) Valid() bool {
	for _, known := range EventTypes() {
		if e == known {
			return true
		}
	}
	return false
}

// WebhookSubscription - правило, направляющее один тип события на один внешний URL.
type WebhookSubscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	EventType EventType `json:"evento"`
	CreatedAt time.Time `json:"criado_em"`
}

// SubscriptionPatch описывает частичное изменение подписки; nil-поля не трогаются.
type SubscriptionPatch struct {
	URL       *string
	EventType *EventType
}

// WebhookRequest используется для приёма подписки из JSON-запроса администратора.
type WebhookRequest struct {
	URL       string `json:"url" validate:"required,url"`
	EventType string `json:"evento" validate:"required,oneof=criou_conta venda_realizada compromisso plano_expirou trial_expirou trial_expira_1h"`
}

// WebhookPatchRequest используется для частичного обновления подписки.
type WebhookPatchRequest struct {
	URL       *string `json:"url,omitempty" validate:"omitempty,url"`
	EventType *string `json:"evento,omitempty" validate:"omitempty,oneof=criou_conta venda_realizada compromisso plano_expirou trial_expirou trial_expira_1h"`
}
