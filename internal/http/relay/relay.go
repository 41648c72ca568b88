// Package relay передает потоковый ответ модели клиенту по мере поступления фрагментов.
package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
)

// Результаты передачи потока.
const (
	ResultCompleted  = "completed"
	ResultTruncated  = "truncated"
	ResultClientGone = "client_gone"
)

// Source поток фрагментов; io.EOF означает штатное завершение.
type Source interface {
	Next() (string, error)
}

// Stream пишет заголовки text/plain и каждый фрагмент из src, сбрасывая буфер
// после каждой записи. Дедлайн записи продлевается на timeout. Возвращает
// собранный текст и результат передачи. Ошибка чтения из src после начала
// ответа только логируется: ответ просто обрывается.
func Stream(w http.ResponseWriter, src Source, timeout time.Duration, log *slog.Logger) (string, string) {
	const op = "relay.Stream"
	log = log.With(slog.String("op", op))

	rc := http.NewResponseController(w)
	if timeout > 0 {
		if err := rc.SetWriteDeadline(time.Now().Add(timeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			log.Warn("failed to extend write deadline", sl.Err(err))
		}
	}

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flush(rc)

	var text strings.Builder
	result := ResultCompleted
	for {
		delta, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Error("upstream stream interrupted", sl.Err(err))
				result = ResultTruncated
			}
			break
		}
		text.WriteString(delta)
		if _, err := fmt.Fprint(w, delta); err != nil {
			log.Info("client went away", sl.Err(err))
			result = ResultClientGone
			break
		}
		flush(rc)
	}

	metrics.ChatStreams.WithLabelValues(result).Inc()
	log.Debug("stream finished", slog.String("result", result), slog.Int("bytes", text.Len()))
	return text.String(), result
}

func flush(rc *http.ResponseController) {
	_ = rc.Flush()
}
