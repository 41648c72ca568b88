// Package api собирает HTTP-сервер Patriot Desa: маршруты, middleware и зависимости.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/patriot-desa/internal/config"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/admin"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/chat/ai"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/chat/send"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/chats"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/health"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/preregistration"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/profile"
	profileactivity "github.com/magabrotheeeer/patriot-desa/internal/http/handlers/profile/activity"
	profileusage "github.com/magabrotheeeer/patriot-desa/internal/http/handlers/profile/usage"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/subscription/check"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/subscription/checkout"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/http/relay"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// Services зависимости, из которых собираются обработчики.
type Services struct {
	Auth            register.Service
	Login           login.Service
	Preregistration preregistration.Service
	Usage           interface {
		profileusage.Service
		relay.Usage
	}
	Completion relay.Completion
	Activity   interface {
		ai.Activity
		profileactivity.Service
	}
	Chats        chats.Service
	Sender       send.Chats
	Profile      profile.Service
	Subscription interface {
		check.Service
		checkout.Service
	}
	Webhook  webhook.Service
	Admin    admin.Service
	Settings middlewarectx.SettingsReader
	Tokens   middlewarectx.TokenParser
	Health   map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, s Services) {
	// Глобальные middleware
	r.Use(
		cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{send.HeaderChatID},
			AllowCredentials: true,
		}).Handler,
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Login).ServeHTTP)
		r.Post("/pre-registrations", preregistration.New(logger, s.Preregistration).ServeHTTP)

		hooks := webhook.New(logger, s.Webhook)
		r.Post("/webhook/midtrans", hooks.Midtrans)
		r.Post("/webhook/payment", hooks.Payment)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Use(middlewarectx.MaintenanceMiddleware(s.Settings, logger))
			r.Use(middlewarectx.RateLimitMiddleware(middlewarectx.NewLimiter(cfg.RPS, cfg.Burst), logger))

			r.Post("/chat/ai", ai.New(logger, s.Usage, s.Completion, s.Activity, cfg.StreamTimeout).ServeHTTP)
			r.Post("/chat/send", send.New(logger, s.Usage, s.Sender, s.Completion, s.Activity, cfg.StreamTimeout).ServeHTTP)

			ch := chats.New(logger, s.Chats)
			r.Route("/chats", func(r chi.Router) {
				r.Get("/", ch.List)
				r.Post("/", ch.Create)
				r.Route("/{"+chats.ParamChatID+"}", func(r chi.Router) {
					r.Put("/", ch.Rename)
					r.Delete("/", ch.Delete)
					r.Get("/messages", ch.Messages)
					r.Post("/messages", ch.AddMessage)
					r.Put("/messages/{"+chats.ParamMessageID+"}", ch.EditMessage)
					r.Post("/messages/{"+chats.ParamMessageID+"}/resend", ch.Resend)
				})
			})

			pr := profile.New(logger, s.Profile)
			r.Get("/profile", pr.Get)
			r.Put("/profile", pr.Update)
			r.Get("/profile/usage", profileusage.New(logger, s.Usage).ServeHTTP)
			r.Post("/profile/activity", profileactivity.New(logger, s.Activity).ServeHTTP)

			co := checkout.New(logger, s.Subscription)
			r.Post("/subscription/check", check.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/create", co.Create)
			r.Post("/subscription/midtrans", co.Midtrans)
			r.Post("/subscription/token", co.Token)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(models.RoleAdmin, logger))
				ad := admin.New(logger, s.Admin)
				r.Get("/dashboard/stats", ad.Stats)
				r.Get("/dashboard/user-growth", ad.UserGrowth)
				r.Get("/dashboard/query-distribution", ad.QueryDistribution)
				r.Get("/users", ad.Users)
				r.Put("/users/{"+admin.ParamUserID+"}", ad.UpdateUser)
				r.Delete("/users/{"+admin.ParamUserID+"}", ad.DeleteUser)
				r.Post("/users/{"+admin.ParamUserID+"}/reset-quota", ad.ResetQuota)
				r.Get("/activity", ad.Activity)
				r.Get("/settings", ad.Settings)
				r.Put("/settings", ad.UpdateSettings)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
