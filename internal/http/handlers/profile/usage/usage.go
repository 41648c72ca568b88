// Package usage отдает состояние дневного лимита текущего пользователя.
//
// Запрос соответствует загрузке страницы: если наступили новые сутки,
// счетчик обнуляется до ответа.
package usage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Service состояние лимита.
type Service interface {
	Load(ctx context.Context, userID string) (*models.UsageState, error)
}

// Handler обрабатывает GET /profile/usage.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Дневной лимит
// @Description Возвращает счетчик запросов, лимит, остаток и состояние подписки. Для премиума remaining = -1.
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.UsageState} "Состояние лимита"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Профиль не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /profile/usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.usage"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	state, err := h.service.Load(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.WriteError(w, r, http.StatusNotFound, "profile not found")
			return
		}
		log.Error("failed to load usage", sl.UserID(userID), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to load usage")
		return
	}
	render.JSON(w, r, response.OKWithData(state))
}
