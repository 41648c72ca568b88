// Package preregistration принимает предварительную регистрацию по email.
package preregistration

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Request тело запроса.
type Request struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// Service сохраняет email.
type Service interface {
	Register(ctx context.Context, email string) (string, error)
}

// Handler обрабатывает POST /pre-registrations.
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
// @Summary Предварительная регистрация
// @Tags Pre-registration
// @Accept json
// @Produce json
// @Param request body Request true "Email"
// @Success 201 {object} response.Response "Email сохранен"
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Некорректный email"
// @Router /pre-registrations [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.preregistration"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	email, err := h.service.Register(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			response.WriteError(w, r, http.StatusConflict, "email already registered")
			return
		}
		log.Error("failed to save pre-registration", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to save pre-registration")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]string{"email": email}))
}
