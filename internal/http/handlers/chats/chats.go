// Package chats реализует HTTP-обработчики чатов и сообщений пользователя.
//
// Все маршруты проверяют владельца: чужой или несуществующий чат дает 404.
package chats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	chat "github.com/magabrotheeeer/patriot-desa/internal/services/chat"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Параметры маршрута.
const (
	ParamChatID    = "chatID"
	ParamMessageID = "messageID"
)

// Service бизнес-логика чатов.
type Service interface {
	List(ctx context.Context, userID string) ([]*models.Chat, error)
	Create(ctx context.Context, userID, title string) (*models.Chat, error)
	Rename(ctx context.Context, userID, chatID, title string) (*models.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
	Messages(ctx context.Context, userID, chatID string) ([]*models.ChatMessage, error)
	AddMessage(ctx context.Context, userID string, msg models.ChatMessage) (*models.ChatMessage, error)
	EditMessage(ctx context.Context, userID, chatID, messageID, text string) (*models.ChatMessage, error)
	Resend(ctx context.Context, userID, chatID, messageID, text string) ([]*models.ChatMessage, error)
}

// TitleRequest тело создания и переименования чата.
type TitleRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// MessageRequest тело добавления сообщения.
type MessageRequest struct {
	Role     string  `json:"role" validate:"required,oneof=user assistant"`
	Message  string  `json:"message" validate:"required"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=50"`
}

// TextRequest тело правки и повторной отправки сообщения.
type TextRequest struct {
	Message string `json:"message" validate:"required"`
}

// Handler обработчики маршрутов /chats.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// List godoc
// @Summary Список чатов
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response "Чаты, последние обновленные первыми"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /chats [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.List")
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, log, err, "failed to list chats")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Create godoc
// @Summary Создание чата
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TitleRequest false "Заголовок"
// @Success 201 {object} response.Response "Созданный чат"
// @Router /chats [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.Create")
	if !ok {
		return
	}
	var req TitleRequest
	if r.ContentLength != 0 && !h.decode(w, r, log, &req) {
		return
	}
	c, err := h.service.Create(r.Context(), userID, req.Title)
	if err != nil {
		h.fail(w, r, log, err, "failed to create chat")
		return
	}
	log.Info("chat created", slog.String("chat_id", c.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(c))
}

// Rename godoc
// @Summary Переименование чата
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Param request body TitleRequest true "Новый заголовок"
// @Success 200 {object} response.Response "Чат"
// @Failure 404 {object} response.ErrorResponse "Чат не найден"
// @Router /chats/{chatID} [put]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.Rename")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	var req TitleRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	c, err := h.service.Rename(r.Context(), userID, chatID, req.Title)
	if err != nil {
		h.fail(w, r, log, err, "failed to rename chat")
		return
	}
	render.JSON(w, r, response.OKWithData(c))
}

// Delete godoc
// @Summary Удаление чата
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Success 200 {object} response.Response "Чат удален"
// @Failure 404 {object} response.ErrorResponse "Чат не найден"
// @Router /chats/{chatID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.Delete")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chatID); err != nil {
		h.fail(w, r, log, err, "failed to delete chat")
		return
	}
	log.Info("chat deleted", slog.String("chat_id", chatID))
	render.JSON(w, r, response.OKWithData(map[string]string{"id": chatID}))
}

// Messages godoc
// @Summary Сообщения чата
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Success 200 {object} response.Response "Сообщения в хронологическом порядке"
// @Failure 404 {object} response.ErrorResponse "Чат не найден"
// @Router /chats/{chatID}/messages [get]
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.Messages")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	msgs, err := h.service.Messages(r.Context(), userID, chatID)
	if err != nil {
		h.fail(w, r, log, err, "failed to load messages")
		return
	}
	render.JSON(w, r, response.OKWithData(msgs))
}

// AddMessage godoc
// @Summary Добавление сообщения
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Param request body MessageRequest true "Сообщение"
// @Success 201 {object} response.Response "Сообщение"
// @Failure 404 {object} response.ErrorResponse "Чат не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /chats/{chatID}/messages [post]
func (h *Handler) AddMessage(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.AddMessage")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	var req MessageRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	msg, err := h.service.AddMessage(r.Context(), userID, models.ChatMessage{
		ChatID:   chatID,
		Role:     req.Role,
		Message:  req.Message,
		Category: req.Category,
	})
	if err != nil {
		h.fail(w, r, log, err, "failed to save message")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(msg))
}

// EditMessage godoc
// @Summary Правка сообщения
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Param messageID path string true "ID сообщения"
// @Param request body TextRequest true "Новый текст"
// @Success 200 {object} response.Response "Сообщение"
// @Failure 404 {object} response.ErrorResponse "Чат или сообщение не найдены"
// @Router /chats/{chatID}/messages/{messageID} [put]
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.EditMessage")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	messageID, ok := param(w, r, ParamMessageID)
	if !ok {
		return
	}
	var req TextRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	msg, err := h.service.EditMessage(r.Context(), userID, chatID, messageID, req.Message)
	if err != nil {
		h.fail(w, r, log, err, "failed to edit message")
		return
	}
	render.JSON(w, r, response.OKWithData(msg))
}

// Resend godoc
// @Summary Повторная отправка
// @Description Переписывает сообщение и удаляет все сообщения после него одной транзакцией.
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param chatID path string true "ID чата"
// @Param messageID path string true "ID сообщения"
// @Param request body TextRequest true "Новый текст"
// @Success 200 {object} response.Response "Оставшаяся переписка"
// @Failure 404 {object} response.ErrorResponse "Чат или сообщение не найдены"
// @Router /chats/{chatID}/messages/{messageID}/resend [post]
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.chats.Resend")
	if !ok {
		return
	}
	chatID, ok := param(w, r, ParamChatID)
	if !ok {
		return
	}
	messageID, ok := param(w, r, ParamMessageID)
	if !ok {
		return
	}
	var req TextRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	transcript, err := h.service.Resend(r.Context(), userID, chatID, messageID, req.Message)
	if err != nil {
		h.fail(w, r, log, err, "failed to resend message")
		return
	}
	render.JSON(w, r, response.OKWithData(transcript))
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
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.WriteValidationError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.WriteError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrInvalidRole):
		response.WriteError(w, r, http.StatusBadRequest, chat.ErrInvalidRole.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		response.WriteError(w, r, http.StatusBadRequest, chat.ErrEmptyMessage.Error())
	default:
		log.Error(msg, sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, msg)
	}
}

// param читает идентификатор из пути. Не-UUID дает 404: такой записи быть не может.
func param(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	if _, err := uuid.Parse(raw); err != nil {
		response.WriteError(w, r, http.StatusNotFound, "not found")
		return "", false
	}
	return raw, true
}
