// Package check реализует проверку статуса подписки.
//
// Истекший премиум понижается до бесплатного в момент проверки.
package check

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Request тело запроса. Пустой user_id означает текущего пользователя.
type Request struct {
	UserID string `json:"user_id,omitempty" validate:"omitempty,uuid"`
}

// Service проверка подписки.
type Service interface {
	Check(ctx context.Context, userID string) (*models.SubscriptionCheck, error)
}

// Handler обрабатывает POST /subscription/check.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Проверка подписки
// @Description Возвращает статус подписки. Истекший премиум понижается до free, ответ содержит expired=true. Проверка чужого профиля доступна только администратору.
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request false "Пользователь"
// @Success 200 {object} models.SubscriptionCheck "Статус подписки"
// @Failure 403 {object} response.ErrorResponse "Чужой профиль"
// @Failure 404 {object} response.ErrorResponse "Профиль не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/check [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.check"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	userID := callerID
	if req.UserID != "" && req.UserID != callerID {
		if middlewarectx.RoleFrom(r.Context()) != models.RoleAdmin {
			log.Warn("attempt to check foreign subscription", sl.UserID(callerID))
			response.WriteError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		userID = req.UserID
	}

	result, err := h.service.Check(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.WriteError(w, r, http.StatusNotFound, "profile not found")
			return
		}
		log.Error("failed to check subscription", sl.UserID(userID), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to check subscription")
		return
	}
	render.JSON(w, r, result)
}
