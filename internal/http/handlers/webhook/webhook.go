// Package webhook принимает уведомления Midtrans.
//
// Ответы простым текстом: "OK" при успехе или повторе, "Error" при сбое записи,
// чтобы шлюз повторил уведомление.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	payment "github.com/magabrotheeeer/patriot-desa/internal/services/payment"
)

const maxBodySize = 1 << 20

// Service обработка уведомлений.
type Service interface {
	HandleMidtrans(ctx context.Context, raw []byte) (payment.Outcome, error)
	HandlePayment(ctx context.Context, raw []byte) (payment.Outcome, error)
}

// Handler обработчики /webhook.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Midtrans godoc
// @Summary Уведомление Midtrans
// @Description Транзакции (settlement, capture) и рекуррентные подписки (active, expired, cancelled). Подпись проверяется по server key, повтор уведомления не применяется второй раз.
// @Tags Webhook
// @Accept json
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Invalid webhook data"
// @Failure 401 {string} string "Invalid signature"
// @Failure 500 {string} string "Error"
// @Router /webhook/midtrans [post]
func (h *Handler) Midtrans(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "handlers.webhook.Midtrans", h.service.HandleMidtrans)
}

// Payment godoc
// @Summary Уведомление о разовой оплате
// @Description Премиум на 30 дней для заказов ONETIME в статусе settlement, остальное подтверждается без изменений.
// @Tags Webhook
// @Accept json
// @Produce plain
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Invalid webhook data"
// @Failure 401 {string} string "Invalid signature"
// @Failure 500 {string} string "Error"
// @Router /webhook/payment [post]
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "handlers.webhook.Payment", h.service.HandlePayment)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op string,
	process func(ctx context.Context, raw []byte) (payment.Outcome, error)) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		text(w, http.StatusBadRequest, "Invalid webhook data")
		return
	}

	outcome, err := process(r.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrMissingUserID):
			log.Warn("webhook without user id")
			text(w, http.StatusBadRequest, "Invalid webhook data - missing user_id")
		case errors.Is(err, payment.ErrUnknownUser):
			log.Warn("webhook for unknown user", sl.Err(err))
			text(w, http.StatusBadRequest, "Invalid webhook data - unknown user")
		case errors.Is(err, payment.ErrInvalidSignature):
			log.Warn("webhook signature mismatch")
			text(w, http.StatusUnauthorized, "Invalid signature")
		case errors.Is(err, payment.ErrInvalidPayload):
			log.Error("malformed webhook", sl.Err(err))
			text(w, http.StatusBadRequest, "Invalid webhook data")
		default:
			log.Error("failed to process webhook", sl.Err(err))
			text(w, http.StatusInternalServerError, "Error")
		}
		return
	}

	log.Info("webhook processed", slog.String("outcome", string(outcome)))
	text(w, http.StatusOK, "OK")
}

func text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
