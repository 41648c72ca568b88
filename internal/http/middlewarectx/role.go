package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/patriot-desa/internal/http/response"
)

// RequireRole пропускает только пользователей с указанной ролью, остальным 403.
func RequireRole(role string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFrom(r.Context()) != role {
				userID, _ := UserFrom(r.Context())
				log.Warn("access denied", slog.String("required_role", role), slog.String("user_uid", userID))
				response.WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
