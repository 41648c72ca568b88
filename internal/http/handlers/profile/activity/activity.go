// Package activity принимает записи журнала активности от клиента.
package activity

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
	activity "github.com/magabrotheeeer/patriot-desa/internal/services/activity"
)

// Request запись журнала.
type Request struct {
	Action  string `json:"action" validate:"required,max=200"`
	Details string `json:"details" validate:"max=1000"`
	Type    string `json:"type" validate:"required"`
}

// Service журнал активности.
type Service interface {
	Record(ctx context.Context, userID string, entry models.ActivityLog) error
}

// Handler обрабатывает POST /profile/activity.
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
// @Summary Запись в журнал активности
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Запись"
// @Success 201 {object} response.Response "Запись сохранена"
// @Failure 400 {object} response.ErrorResponse "Неизвестный тип записи"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /profile/activity [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile.activity"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	err := h.service.Record(r.Context(), userID, models.ActivityLog{
		Action:  req.Action,
		Details: req.Details,
		Type:    req.Type,
	})
	if err != nil {
		if errors.Is(err, activity.ErrInvalidType) {
			response.WriteError(w, r, http.StatusBadRequest, activity.ErrInvalidType.Error())
			return
		}
		log.Error("failed to record activity", sl.UserID(userID), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to record activity")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]string{"action": req.Action}))
}
