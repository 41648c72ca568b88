// Package ai реализует HTTP-обработчик потокового ответа ассистента.
//
// Handler резервирует единицу дневного лимита, открывает поток к модели и
// передает фрагменты ответа клиенту как простой текст по мере поступления.
// Если поток открыть не удалось, резерв возвращается.
package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/patriot-desa/internal/completion"
	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/relay"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// Request тело запроса.
type Request struct {
	Messages []completion.Message `json:"messages"`
}

// Handler обрабатывает POST /chat/ai.
type Handler struct {
	log           *slog.Logger
	usage         relay.Usage
	completion    relay.Completion
	activity      Activity
	streamTimeout time.Duration
}

// New создает Handler.
func New(log *slog.Logger, usage relay.Usage, completion relay.Completion, activity Activity, streamTimeout time.Duration) *Handler {
	return &Handler{
		log:           log,
		usage:         usage,
		completion:    completion,
		activity:      activity,
		streamTimeout: streamTimeout,
	}
}

// ServeHTTP godoc
// @Summary Потоковый ответ ассистента
// @Description Резервирует единицу дневного лимита и передает ответ модели простым текстом по мере генерации.
// @Tags Chat
// @Accept  json
// @Produce  plain
// @Security BearerAuth
// @Param request body Request true "Переписка"
// @Success 200 {string} string "Текст ответа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 429 {object} response.ErrorResponse "Лимит API модели"
// @Failure 500 {object} response.ErrorResponse "Ошибка API модели"
// @Router /chat/ai [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.ai"
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

	stream, ok := relay.OpenWithQuota(w, r, log, h.usage, h.completion, userID, req.Messages)
	if !ok {
		return
	}
	defer func() {
		_ = stream.Close()
	}()

	h.activity.Log(r.Context(), userID, "AI query", "Chat message sent", models.ActivityQuery)
	relay.Stream(w, stream, h.streamTimeout, log)
}
