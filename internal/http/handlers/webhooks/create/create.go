// Package create реализует HTTP-обработчик регистрации подписки на вебхук.
//
// Тело {url, evento} проверяется валидатором, затем подписка сохраняется через реестр.
// Достижимость URL при регистрации не проверяется.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/finance-events/internal/http/response"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
)

// Handler управляет HTTP-запросами на создание подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает создание подписки.
type Service interface {
	Create(ctx context.Context, url, eventType string) (*models.WebhookSubscription, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать подписку на вебхук
// @Description Направляет события указанного типа на внешний URL.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.WebhookRequest true "URL и тип события"
// @Success 201 {object} response.Response{data=models.WebhookSubscription}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse
// @Router /admin/webhooks [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhooks.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.WebhookRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("validation failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		log.Error("validator failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	sub, err := h.service.Create(r.Context(), req.URL, req.EventType)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrInvalidEventType):
			log.Warn("subscription rejected", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(registry.ErrInvalidEventType.Error()))
			return
		case errors.Is(err, registry.ErrEmptyURL):
			log.Warn("subscription rejected", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(registry.ErrEmptyURL.Error()))
			return
		}
		log.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create subscription"))
		return
	}

	log.Info("subscription created", slog.String("id", sub.ID), slog.String("evento", string(sub.EventType)))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}
