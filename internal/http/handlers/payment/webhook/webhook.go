// Package webhook реализует HTTP-обработчик входящих вебхуков платёжного провайдера.
//
// Провайдер присылает JSON {secret, event, data}. Секрет сверяется с настроенным за постоянное время,
// затем событие переводится в выдачу или отзыв тарифа. Ответ всегда в форме
// {success, message, user_id?, action?, details?}.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/services/payment"
)

// События провайдера, которые понимает обработчик.
const (
	EventPurchaseApproved     = "purchase_approved"
	EventSubscriptionRenewed  = "subscription_renewed"
	EventSubscriptionCanceled = "subscription_canceled"
	EventRefund               = "refund"
)

const defaultMaxBodyBytes = 256 * 1024

var (
	errEmptyBody       = errors.New("empty body")
	errPayloadTooLarge = errors.New("payload too large")
)

// Service - выдача и отзыв тарифов.
type Service interface {
	Provision(ctx context.Context, data payment.Data) (payment.ProvisionResult, error)
	Revoke(ctx context.Context, email string) (bool, error)
}

// Request - тело входящего вебхука.
type Request struct {
	Secret string          `json:"secret"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data" swaggertype:"object"`
}

// Response - ответ провайдеру.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
	Action  string `json:"action,omitempty"`
	Details string `json:"details,omitempty"`
}

// Handler обрабатывает вебхуки провайдера.
type Handler struct {
	log          *slog.Logger
	service      Service
	secret       string
	maxBodyBytes int64
	metrics      metrics.Metrics
}

// New создаёт Handler. Секрет и лимит тела берутся из конфигурации.
func New(log *slog.Logger, service Service, cfg config.PaymentWebhook, m metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.NoopMetrics{}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		log:          log,
		service:      service,
		secret:       cfg.Secret,
		maxBodyBytes: maxBody,
		metrics:      m,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Выдаёт тариф при purchase_approved и subscription_renewed, сбрасывает при subscription_canceled и refund.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Событие провайдера"
// @Success 200 {object} Response
// @Failure 400 {object} Response "Пустое или некорректное тело, неизвестное событие"
// @Failure 401 {object} Response "Неверный секрет"
// @Failure 405 {object} Response "Метод не POST"
// @Failure 500 {object} Response "Ошибка обработки"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	start := time.Now()
	event := "unknown"

	reply := func(code int, resp Response) {
		h.metrics.RecordPaymentWebhook(event, metrics.StatusLabel(code))
		h.metrics.RecordPaymentWebhookDuration(event, time.Since(start))
		w.WriteHeader(code)
		render.JSON(w, r, resp)
	}

	if r.Method != http.MethodPost {
		log.Warn("method not allowed", slog.String("method", r.Method))
		reply(http.StatusMethodNotAllowed, Response{Message: "method not allowed"})
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		log.Warn("failed to read webhook body", sl.Err(err))
		reply(http.StatusBadRequest, Response{Message: "invalid request body", Details: err.Error()})
		return
	}

	var req Request
	if err = json.Unmarshal(body, &req); err != nil {
		log.Warn("failed to decode webhook body", sl.Err(err))
		reply(http.StatusBadRequest, Response{Message: "invalid request body", Details: err.Error()})
		return
	}

	if h.secret == "" {
		log.Error("payment webhook secret is not configured")
		reply(http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		log.Warn("invalid webhook secret")
		reply(http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}

	if req.Event == "" || isEmptyJSON(req.Data) {
		log.Warn("webhook without event or data", slog.String("event", req.Event))
		reply(http.StatusBadRequest, Response{Message: "event and data are required"})
		return
	}
	event = req.Event
	log = log.With(slog.String("event", event))

	var data payment.Data
	if err = json.Unmarshal(req.Data, &data); err != nil {
		log.Warn("failed to decode webhook data", sl.Err(err))
		reply(http.StatusBadRequest, Response{Message: "invalid data", Details: err.Error()})
		return
	}

	switch event {
	case EventPurchaseApproved, EventSubscriptionRenewed:
		res, err := h.service.Provision(r.Context(), data)
		if err != nil {
			log.Error("failed to provision plan", sl.Err(err))
			reply(http.StatusInternalServerError, Response{Message: "internal error", Details: err.Error()})
			return
		}
		log.Info("plan provisioned",
			slog.String("user_id", res.UserID),
			slog.String("action", res.Action),
			slog.String("plan", string(res.Tier)),
		)
		reply(http.StatusOK, Response{
			Success: true,
			Message: "plan provisioned",
			UserID:  res.UserID,
			Action:  res.Action,
		})

	case EventSubscriptionCanceled, EventRefund:
		found, err := h.service.Revoke(r.Context(), data.Customer.Email)
		if err != nil {
			log.Error("failed to revoke plan", sl.Err(err))
			reply(http.StatusInternalServerError, Response{Message: "internal error", Details: err.Error()})
			return
		}
		action := payment.ActionRevoked
		if !found {
			action = payment.ActionNoAccount
		}
		log.Info("plan revoked", slog.String("action", action))
		reply(http.StatusOK, Response{Success: true, Message: "plan revoked", Action: action})

	default:
		log.Warn("unsupported webhook event")
		reply(http.StatusBadRequest, Response{Message: "unsupported event", Details: event})
	}
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer func() {
		if err := r.Body.Close(); err != nil {
			h.log.Debug("failed to close webhook body", sl.Err(err))
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (max %d bytes)", errPayloadTooLarge, h.maxBodyBytes)
		}
		return nil, err
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null"
}
