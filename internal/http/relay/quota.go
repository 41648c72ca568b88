package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/magabrotheeeer/patriot-desa/internal/completion"
	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	usage "github.com/magabrotheeeer/patriot-desa/internal/services/usage"
)

// Usage резерв дневного лимита.
type Usage interface {
	Reserve(ctx context.Context, userID string) (*models.UsageState, error)
	Release(ctx context.Context, userID string) error
}

// Completion открывает поток ответа модели.
type Completion interface {
	Open(ctx context.Context, messages []completion.Message) (*completion.Stream, error)
}

// OpenWithQuota резервирует лимит и открывает поток. При неудаче пишет ответ
// с ошибкой, возвращает резерв и false.
func OpenWithQuota(w http.ResponseWriter, r *http.Request, log *slog.Logger,
	u Usage, c Completion, userID string, messages []completion.Message) (*completion.Stream, bool) {
	if !Reserve(w, r, log, u, userID) {
		return nil, false
	}
	return Open(w, r, log, u, c, userID, messages)
}

// Reserve резервирует единицу лимита. 402 при исчерпанном лимите.
func Reserve(w http.ResponseWriter, r *http.Request, log *slog.Logger, u Usage, userID string) bool {
	if _, err := u.Reserve(r.Context(), userID); err != nil {
		if errors.Is(err, usage.ErrQuotaExceeded) {
			log.Info("free quota exhausted")
			response.WriteError(w, r, http.StatusPaymentRequired, usage.ErrQuotaExceeded.Error())
			return false
		}
		log.Error("failed to reserve quota", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to check usage quota")
		return false
	}
	return true
}

// Open открывает поток к модели. При ошибке возвращает зарезервированную единицу лимита.
func Open(w http.ResponseWriter, r *http.Request, log *slog.Logger,
	u Usage, c Completion, userID string, messages []completion.Message) (*completion.Stream, bool) {
	stream, err := c.Open(r.Context(), messages)
	if err == nil {
		return stream, true
	}

	if relErr := u.Release(context.WithoutCancel(r.Context()), userID); relErr != nil {
		log.Error("failed to release quota", sl.Err(relErr))
	}

	var upstream *completion.UpstreamError
	switch {
	case errors.As(err, &upstream):
		metrics.UpstreamErrors.WithLabelValues(strconv.Itoa(upstream.StatusCode)).Inc()
		log.Error("completion API rejected request", slog.Int("upstream_status", upstream.StatusCode), sl.Err(err))
		response.WriteError(w, r, upstream.ClientStatus(), upstream.Error())
	case errors.Is(err, completion.ErrNotConfigured):
		log.Error("completion API is not configured")
		response.WriteError(w, r, http.StatusInternalServerError, err.Error())
	default:
		metrics.UpstreamErrors.WithLabelValues("transport").Inc()
		log.Error("failed to reach completion API", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to reach completion API")
	}
	return nil, false
}
