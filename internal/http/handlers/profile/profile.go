// Package profile реализует чтение и обновление профиля текущего пользователя.
package profile

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
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	profile "github.com/magabrotheeeer/patriot-desa/internal/services/profile"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Service бизнес-логика профиля.
type Service interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error)
}

// Handler обработчики /profile.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Get godoc
// @Summary Профиль текущего пользователя
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "Профиль"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Профиль не найден"
// @Router /profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.Get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.WriteError(w, r, http.StatusNotFound, "profile not found")
			return
		}
		log.Error("failed to load profile", sl.UserID(userID), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to load profile")
		return
	}
	render.JSON(w, r, response.OKWithData(p))
}

// Update godoc
// @Summary Обновление профиля
// @Description Меняет имя, роль и телефон. Роль admin выбрать нельзя.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response "Профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Роль нельзя выбрать"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /profile [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.Update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.WriteValidationError(w, r, err)
		return
	}

	p, err := h.service.Update(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, profile.ErrRoleNotAllowed):
			response.WriteError(w, r, http.StatusForbidden, profile.ErrRoleNotAllowed.Error())
		case errors.Is(err, repository.ErrNotFound):
			response.WriteError(w, r, http.StatusNotFound, "profile not found")
		default:
			log.Error("failed to update profile", sl.UserID(userID), sl.Err(err))
			response.WriteError(w, r, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}
	log.Info("profile updated", sl.UserID(userID))
	render.JSON(w, r, response.OKWithData(p))
}
