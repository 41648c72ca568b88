// Package send реализует серверную отправку сообщения в чат.
//
// Обработчик резервирует лимит, сохраняет сообщение пользователя (создавая чат
// при необходимости), передает историю модели и после завершения потока
// сохраняет собранный ответ ассистента.
package send

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/patriot-desa/internal/completion"
	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/relay"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	chat "github.com/magabrotheeeer/patriot-desa/internal/services/chat"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// HeaderChatID заголовок ответа с идентификатором чата.
const HeaderChatID = "X-Chat-ID"

// Request тело запроса.
type Request struct {
	ChatID   string  `json:"chat_id,omitempty" validate:"omitempty,uuid"`
	Message  string  `json:"message" validate:"required,max=8000"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=50"`
}

// Chats операции с чатами, нужные для отправки.
type Chats interface {
	PrepareSend(ctx context.Context, userID, chatID, text string, category *string) (*models.Chat, []completion.Message, error)
	SaveReply(ctx context.Context, chatID, text string) (*models.ChatMessage, error)
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// Handler обрабатывает POST /chat/send.
type Handler struct {
	log           *slog.Logger
	usage         relay.Usage
	chats         Chats
	completion    relay.Completion
	activity      Activity
	streamTimeout time.Duration
	validate      *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, usage relay.Usage, chats Chats, completion relay.Completion,
	activity Activity, streamTimeout time.Duration) *Handler {
	return &Handler{
		log:           log,
		usage:         usage,
		chats:         chats,
		completion:    completion,
		activity:      activity,
		streamTimeout: streamTimeout,
		validate:      validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправка сообщения в чат
// @Description Сохраняет сообщение пользователя, передает ответ модели простым текстом и сохраняет его в чат. Идентификатор чата возвращается в заголовке X-Chat-ID.
// @Tags Chat
// @Accept  json
// @Produce  plain
// @Security BearerAuth
// @Param request body Request true "Сообщение"
// @Success 200 {string} string "Текст ответа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 404 {object} response.ErrorResponse "Чат не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Лимит API модели"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /chat/send [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.send"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	log = log.With(sl.UserID(userID))

	var req Request
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

	if !relay.Reserve(w, r, log, h.usage, userID) {
		return
	}

	c, history, err := h.chats.PrepareSend(r.Context(), userID, req.ChatID, req.Message, req.Category)
	if err != nil {
		if relErr := h.usage.Release(context.WithoutCancel(r.Context()), userID); relErr != nil {
			log.Error("failed to release quota", sl.Err(relErr))
		}
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.WriteError(w, r, http.StatusNotFound, "chat not found")
		case errors.Is(err, chat.ErrEmptyMessage):
			response.WriteError(w, r, http.StatusBadRequest, err.Error())
		default:
			log.Error("failed to save user message", sl.Err(err))
			response.WriteError(w, r, http.StatusInternalServerError, "failed to save message")
		}
		return
	}
	log = log.With(slog.String("chat_id", c.ID))

	stream, ok := relay.Open(w, r, log, h.usage, h.completion, userID, history)
	if !ok {
		return
	}
	defer func() {
		_ = stream.Close()
	}()

	h.activity.Log(r.Context(), userID, "AI query", "Chat message sent", models.ActivityQuery)
	w.Header().Set(HeaderChatID, c.ID)
	text, result := relay.Stream(w, stream, h.streamTimeout, log)

	// клиент мог уже отключиться, ответ все равно сохраняется
	if _, err := h.chats.SaveReply(context.WithoutCancel(r.Context()), c.ID, text); err != nil {
		log.Error("assistant reply lost", slog.String("result", result), sl.Err(err))
	}
}
