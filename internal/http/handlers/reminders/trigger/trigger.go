// Package trigger реализует ручной запуск сканера напоминаний администратором.
package trigger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/finance-events/internal/http/response"
	"github.com/magabrotheeeer/finance-events/internal/lib/sl"
)

// Response - число встреч, по которым отправлено напоминание.
type Response struct {
	Triggered int `json:"triggered"`
}

// Handler запускает один проход сканера.
type Handler struct {
	log     *slog.Logger
	scanner Scanner
}

// Scanner - сканер напоминаний.
type Scanner interface {
	Run(ctx context.Context) (int, error)
}

// New создаёт Handler.
func New(log *slog.Logger, scanner Scanner) *Handler {
	return &Handler{
		log:     log,
		scanner: scanner,
	}
}

// ServeHTTP godoc
// @Summary Запустить сканер напоминаний
// @Description Отправляет напоминания о встречах, начинающихся в ближайшее окно, и возвращает их число.
// @Tags Reminders
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /admin/reminders/trigger [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminders.trigger"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	n, err := h.scanner.Run(r.Context())
	if err != nil {
		log.Error("reminder run failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("reminder run failed"))
		return
	}

	log.Info("reminder run finished", slog.Int("triggered", n))
	render.JSON(w, r, Response{Triggered: n})
}
