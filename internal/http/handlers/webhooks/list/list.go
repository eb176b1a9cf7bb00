// Package list реализует HTTP-обработчик получения подписок на вебхуки.
package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finance-events/internal/http/response"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
)

// Handler отдаёт список подписок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение подписок.
type Service interface {
	List(ctx context.Context, eventType string) ([]models.WebhookSubscription, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список подписок на вебхуки
// @Description Возвращает все подписки или только подписки на событие из параметра evento.
// @Tags Webhooks
// @Produce  json
// @Security BearerAuth
// @Param evento query string false "Тип события"
// @Success 200 {object} response.Response{data=[]models.WebhookSubscription}
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Неизвестный тип события"
// @Failure 500 {object} response.ErrorResponse
// @Router /admin/webhooks [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhooks.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	eventType := r.URL.Query().Get("evento")

	subs, err := h.service.List(r.Context(), eventType)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidEventType) {
			log.Warn("unknown event type in filter", slog.String("evento", eventType))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown event type"))
			return
		}
		log.Error("failed to list subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list subscriptions"))
		return
	}
	if subs == nil {
		subs = []models.WebhookSubscription{}
	}

	log.Debug("subscriptions listed", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OKWithData(subs))
}
