// Package admin реализует HTTP-обработчики панели администратора: сводку,
// управление пользователями, журнал активности и глобальные настройки.
//
// Маршруты доступны только роли admin, проверка выполняется middleware.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// ParamUserID параметр маршрута с id пользователя.
const ParamUserID = "userID"

// Service бизнес-логика панели администратора.
type Service interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	UserGrowth(ctx context.Context) ([]models.GrowthPoint, error)
	QueryDistribution(ctx context.Context) ([]models.CategoryCount, error)
	Users(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	UpdateUser(ctx context.Context, adminID, userID string, upd models.UserUpdate) (*models.Profile, error)
	DeleteUser(ctx context.Context, adminID, userID string) error
	ResetQuota(ctx context.Context, adminID, userID string) error
	Activity(ctx context.Context, limit int) ([]*models.ActivityLog, error)
	Settings(ctx context.Context) (*models.AppSettings, error)
	UpdateSettings(ctx context.Context, adminID string, st models.AppSettings) (*models.AppSettings, error)
}

// Handler обработчики /admin.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Stats godoc
// @Summary Сводка панели
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.DashboardStats} "Сводка"
// @Failure 403 {object} response.ErrorResponse "Нет прав"
// @Router /admin/dashboard/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Stats")
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, r, log, err, "failed to load stats")
		return
	}
	render.JSON(w, r, response.OKWithData(stats))
}

// UserGrowth godoc
// @Summary Регистрации по месяцам
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "Последние 12 месяцев"
// @Router /admin/dashboard/user-growth [get]
func (h *Handler) UserGrowth(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.UserGrowth")
	points, err := h.service.UserGrowth(r.Context())
	if err != nil {
		h.fail(w, r, log, err, "failed to load user growth")
		return
	}
	render.JSON(w, r, response.OKWithData(points))
}

// QueryDistribution godoc
// @Summary Вопросы по категориям
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "Число вопросов в каждой категории"
// @Router /admin/dashboard/query-distribution [get]
func (h *Handler) QueryDistribution(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.QueryDistribution")
	dist, err := h.service.QueryDistribution(r.Context())
	if err != nil {
		h.fail(w, r, log, err, "failed to load query distribution")
		return
	}
	render.JSON(w, r, response.OKWithData(dist))
}

// Users godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Размер страницы, до 100"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Пользователи"
// @Router /admin/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Users")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.Users(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, log, err, "failed to list users")
		return
	}
	render.JSON(w, r, response.OKWithData(users))
}

// UpdateUser godoc
// @Summary Изменение пользователя
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "ID пользователя"
// @Param request body models.UserUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response "Профиль"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/users/{userID} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.UpdateUser")
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	var req models.UserUpdate
	if !h.decode(w, r, log, &req) {
		return
	}

	p, err := h.service.UpdateUser(r.Context(), adminID(r), userID, req)
	if err != nil {
		h.fail(w, r, log, err, "failed to update user")
		return
	}
	log.Info("user updated", sl.UserID(userID))
	render.JSON(w, r, response.OKWithData(p))
}

// DeleteUser godoc
// @Summary Удаление пользователя
// @Description Удаляет профиль вместе с чатами, сообщениями и подпиской.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "ID пользователя"
// @Success 200 {object} response.Response "Пользователь удален"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.DeleteUser")
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), adminID(r), userID); err != nil {
		h.fail(w, r, log, err, "failed to delete user")
		return
	}
	log.Info("user deleted", sl.UserID(userID))
	render.JSON(w, r, response.OKWithData(map[string]string{"id": userID}))
}

// ResetQuota godoc
// @Summary Сброс дневного лимита
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "ID пользователя"
// @Success 200 {object} response.Response "Лимит сброшен"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/users/{userID}/reset-quota [post]
func (h *Handler) ResetQuota(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.ResetQuota")
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	if err := h.service.ResetQuota(r.Context(), adminID(r), userID); err != nil {
		h.fail(w, r, log, err, "failed to reset quota")
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"id": userID, "usage_count": 0}))
}

// Activity godoc
// @Summary Журнал активности
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "Последние 100 записей"
// @Router /admin/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Activity")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Activity(r.Context(), limit)
	if err != nil {
		h.fail(w, r, log, err, "failed to load activity")
		return
	}
	render.JSON(w, r, response.OKWithData(entries))
}

// Settings godoc
// @Summary Глобальные настройки
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.AppSettings} "Настройки"
// @Router /admin/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Settings")
	st, err := h.service.Settings(r.Context())
	if err != nil {
		h.fail(w, r, log, err, "failed to load settings")
		return
	}
	render.JSON(w, r, response.OKWithData(st))
}

// UpdateSettings godoc
// @Summary Изменение настроек
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AppSettings true "Настройки"
// @Success 200 {object} response.Response{data=models.AppSettings} "Сохраненные настройки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.UpdateSettings")
	var req models.AppSettings
	if !h.decode(w, r, log, &req) {
		return
	}
	st, err := h.service.UpdateSettings(r.Context(), adminID(r), req)
	if err != nil {
		h.fail(w, r, log, err, "failed to save settings")
		return
	}
	log.Info("settings updated", slog.Bool("maintenance_mode", st.MaintenanceMode))
	render.JSON(w, r, response.OKWithData(st))
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("admin_id", adminID(r)),
	)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		response.WriteValidationError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		response.WriteError(w, r, http.StatusNotFound, "user not found")
		return
	}
	log.Error(msg, sl.Err(err))
	response.WriteError(w, r, http.StatusInternalServerError, msg)
}

func adminID(r *http.Request) string {
	id, _ := middlewarectx.UserFrom(r.Context())
	return id
}

func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, ParamUserID)
	if _, err := uuid.Parse(raw); err != nil {
		response.WriteError(w, r, http.StatusNotFound, "user not found")
		return "", false
	}
	return raw, true
}
