// Package checkout реализует оформление оплаты подписки через Midtrans:
// разовую оплату, первую оплату с сохранением карты, рекуррентную подписку
// и выдачу Snap-токена для произвольного заказа.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/paymentprovider"
	services "github.com/magabrotheeeer/patriot-desa/internal/services/subscription"
)

// MsgIncomplete ответ на неполные данные покупателя.
const MsgIncomplete = "Data tidak lengkap"

// Service операции оформления подписки.
type Service interface {
	CreateOneTime(ctx context.Context, userID string, c services.Customer) (*services.Checkout, error)
	CreateFirstPayment(ctx context.Context, userID string, c services.Customer) (*services.Checkout, error)
	StartRecurring(ctx context.Context, userID string, c services.Customer, cardToken string) (*services.Recurring, error)
	CreateToken(ctx context.Context, userID, orderID string, grossAmount json.Number, c services.Customer) (string, error)
}

// CustomerRequest данные покупателя.
type CustomerRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,max=100"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// MidtransRequest тело /subscription/midtrans.
type MidtransRequest struct {
	CustomerRequest
	CardToken string `json:"card_token,omitempty"`
}

// TokenRequest тело /subscription/token.
type TokenRequest struct {
	CustomerRequest
	OrderID     string      `json:"order_id" validate:"required,max=50"`
	GrossAmount json.Number `json:"gross_amount" validate:"required"`
}

// Handler обработчики оформления оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Create godoc
// @Summary Разовая оплата премиума
// @Description Создает Snap-транзакцию ONETIME на 30 дней премиума по текущей цене подписки.
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CustomerRequest true "Покупатель"
// @Success 200 {object} map[string]any "snap_token и redirect_url"
// @Failure 400 {object} map[string]any "Data tidak lengkap"
// @Router /subscription/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.subscription.Create")
	if !ok {
		return
	}
	var req CustomerRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	c, err := h.service.CreateOneTime(r.Context(), userID, customer(req))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("one-time checkout issued", slog.String("order_id", c.OrderID))
	render.JSON(w, r, map[string]any{
		"success":      true,
		"snap_token":   c.SnapToken,
		"redirect_url": c.RedirectURL,
		"message":      "Snap token created successfully",
	})
}

// Midtrans godoc
// @Summary Рекуррентная подписка
// @Description Без card_token создает первую оплату с сохранением карты; с card_token оформляет ежемесячную подписку и сразу открывает премиум.
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MidtransRequest true "Покупатель и токен карты"
// @Success 200 {object} map[string]any "Первая оплата или созданная подписка"
// @Failure 400 {object} map[string]any "Data tidak lengkap"
// @Router /subscription/midtrans [post]
func (h *Handler) Midtrans(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.subscription.Midtrans")
	if !ok {
		return
	}
	var req MidtransRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	if req.CardToken == "" {
		c, err := h.service.CreateFirstPayment(r.Context(), userID, customer(req.CustomerRequest))
		if err != nil {
			h.fail(w, r, log, err)
			return
		}
		render.JSON(w, r, map[string]any{
			"snap_token":   c.SnapToken,
			"redirect_url": c.RedirectURL,
			"step":         "first_payment",
		})
		return
	}

	sub, err := h.service.StartRecurring(r.Context(), userID, customer(req.CustomerRequest), req.CardToken)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("recurring subscription started", slog.String("subscription_id", sub.SubscriptionID))
	render.JSON(w, r, map[string]any{
		"success":           true,
		"subscription_id":   sub.SubscriptionID,
		"subscription_name": sub.SubscriptionName,
		"status":            sub.Status,
	})
}

// Token godoc
// @Summary Snap-токен для заказа
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TokenRequest true "Заказ"
// @Success 200 {object} map[string]any "token"
// @Failure 400 {object} map[string]any "Data tidak lengkap"
// @Router /subscription/token [post]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.subscription.Token")
	if !ok {
		return
	}
	var req TokenRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	token, err := h.service.CreateToken(r.Context(), userID, req.OrderID, req.GrossAmount, customer(req.CustomerRequest))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, map[string]any{"token": token})
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request, op string) (*slog.Logger, string, bool) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, "", false
	}
	return log.With(sl.UserID(userID)), userID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		writeRaw(w, r, http.StatusBadRequest, MsgIncomplete)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Info("incomplete customer data", sl.Err(err))
		writeRaw(w, r, http.StatusBadRequest, MsgIncomplete)
		return false
	}
	return true
}

// fail отдает ответ шлюза как есть: тот же статус и тело в поле error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var gw *paymentprovider.GatewayError
	if errors.As(err, &gw) {
		log.Error("midtrans rejected request", slog.Int("gateway_status", gw.StatusCode), sl.Err(err))
		var body any = string(gw.Body)
		if json.Valid(gw.Body) {
			body = gw.Body
		}
		render.Status(r, gw.StatusCode)
		render.JSON(w, r, map[string]any{"error": body})
		return
	}
	log.Error("checkout failed", sl.Err(err))
	writeRaw(w, r, http.StatusInternalServerError, err.Error())
}

func writeRaw(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func customer(req CustomerRequest) services.Customer {
	return services.Customer{Name: req.CustomerName, Email: req.CustomerEmail}
}
