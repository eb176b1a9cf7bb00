// Package api собирает HTTP-сервер сервиса событий: платёжный вебхук,
// администрирование подписок, ручной запуск напоминаний, health, метрики и документацию.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/finance-events/docs"
	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/health"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/reminders/trigger"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/webhooks/create"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/webhooks/list"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/webhooks/remove"
	"github.com/magabrotheeeer/finance-events/internal/http/handlers/webhooks/update"
	"github.com/magabrotheeeer/finance-events/internal/http/middlewarectx"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
)

// Registry - операции реестра подписок, нужные административным обработчикам.
type Registry interface {
	list.Service
	create.Service
	update.Service
	remove.Service
}

// Deps - всё, от чего зависят маршруты.
type Deps struct {
	Logger         *slog.Logger
	Payments       webhook.Service
	PaymentWebhook config.PaymentWebhook
	Registry       Registry
	Scanner        trigger.Scanner
	Tokens         middlewarectx.TokenParser
	Storage        health.Pinger
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	AdminLimiter   *rate.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	if d.Metrics == nil {
		d.Metrics = metrics.NoopMetrics{}
	}
	if d.AdminLimiter == nil {
		d.AdminLimiter = rate.NewLimiter(10, 20)
	}
	logger := d.Logger

	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware(d.Metrics),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, d.Storage).ServeHTTP)

		// Провайдер аутентифицируется секретом в теле, метод проверяет сам обработчик.
		r.Handle("/payments/webhook", webhook.New(logger, d.Payments, d.PaymentWebhook, d.Metrics))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.RateLimit(logger, d.AdminLimiter))
			r.Use(middlewarectx.AdminJWT(d.Tokens, logger))

			r.Get("/webhooks", list.New(logger, d.Registry).ServeHTTP)
			r.Post("/webhooks", create.New(logger, d.Registry).ServeHTTP)
			r.Put("/webhooks/{id}", update.New(logger, d.Registry).ServeHTTP)
			r.Delete("/webhooks/{id}", remove.New(logger, d.Registry).ServeHTTP)
			r.Post("/reminders/trigger", trigger.New(logger, d.Scanner).ServeHTTP)
		})
	})

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
