// Package metrics описывает метрики сервиса событий и их реализации:
// пустую для тестов и Prometheus для рабочего режима.
package metrics

import "time"

// Metrics собирает счётчики по всем трём потокам: платёжный вебхук, рассылка и напоминания.
type Metrics interface {
	// RecordPaymentWebhook учитывает входящий платёжный вебхук; status - HTTP-код ответа.
	RecordPaymentWebhook(event, status string)
	// RecordPaymentWebhookDuration учитывает время обработки вебхука.
	RecordPaymentWebhookDuration(event string, duration time.Duration)
	// RecordEntitlementChange учитывает изменение тарифа: user_created, user_updated, revoked.
	RecordEntitlementChange(action string, tier string)
	// RecordLedgerFailure учитывает неудачную запись в журнал продаж.
	RecordLedgerFailure()
	// RecordDelivery учитывает одну доставку события подписчику; status - delivered или failed.
	RecordDelivery(eventType, status string)
	// RecordRemindersSent учитывает число напоминаний, отправленных за один запуск сканера.
	RecordRemindersSent(count int)
	// RecordHTTPRequest учитывает HTTP-запрос к API.
	RecordHTTPRequest(method, route, code string, duration time.Duration)
}

// NoopMetrics ничего не записывает.
type NoopMetrics struct{}

func (NoopMetrics) RecordPaymentWebhook(_, _ string)                       {}
func (NoopMetrics) RecordPaymentWebhookDuration(_ string, _ time.Duration) {}
func (NoopMetrics) RecordEntitlementChange(_, _ string)                    {}
func (NoopMetrics) RecordLedgerFailure()                                   {}
func (NoopMetrics) RecordDelivery(_, _ string)                             {}
func (NoopMetrics) RecordRemindersSent(_ int)                              {}
func (NoopMetrics) RecordHTTPRequest(_, _, _ string, _ time.Duration)      {}
