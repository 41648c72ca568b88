package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// SettingsReader источник флага режима обслуживания.
type SettingsReader interface {
	Current(ctx context.Context) models.AppSettings
}

// MaintenanceMiddleware отвечает 503 всем, кроме администраторов, пока
// включен режим обслуживания.
func MaintenanceMiddleware(settings SettingsReader, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFrom(r.Context()) != models.RoleAdmin && settings.Current(r.Context()).MaintenanceMode {
				log.Info("request rejected: maintenance mode", slog.String("path", r.URL.Path))
				response.WriteError(w, r, http.StatusServiceUnavailable, "service is under maintenance")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
