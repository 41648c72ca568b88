package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/patriot-desa/internal/cache"
	"github.com/magabrotheeeer/patriot-desa/internal/completion"
	"github.com/magabrotheeeer/patriot-desa/internal/config"
	"github.com/magabrotheeeer/patriot-desa/internal/http/handlers/health"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/jwt"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/migrations"
	"github.com/magabrotheeeer/patriot-desa/internal/paymentprovider"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
	activity "github.com/magabrotheeeer/patriot-desa/internal/services/activity"
	admin "github.com/magabrotheeeer/patriot-desa/internal/services/admin"
	auth "github.com/magabrotheeeer/patriot-desa/internal/services/auth"
	chat "github.com/magabrotheeeer/patriot-desa/internal/services/chat"
	payment "github.com/magabrotheeeer/patriot-desa/internal/services/payment"
	preregistration "github.com/magabrotheeeer/patriot-desa/internal/services/preregistration"
	profile "github.com/magabrotheeeer/patriot-desa/internal/services/profile"
	settings "github.com/magabrotheeeer/patriot-desa/internal/services/settings"
	services "github.com/magabrotheeeer/patriot-desa/internal/services/subscription"
	usage "github.com/magabrotheeeer/patriot-desa/internal/services/usage"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"

	"github.com/streadway/amqp"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервер со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New поднимает хранилище, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db, cache: cacheRedis}
	publisher := app.connectBroker(cfg.RabbitMQ)

	loc := cfg.Quota.Location()
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := paymentprovider.NewClient(cfg.Midtrans)

	activityService := activity.NewService(db, logger)
	settingsService := settings.NewService(db, cacheRedis, logger, cfg.FreeDailyLimit)
	authService := auth.NewAuthService(db, jwtMaker, activityService, loc, logger)
	chatService := chat.NewService(db, logger)
	subscriptionService := services.NewService(db, gateway, publisher, activityService, settingsService, loc, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, Services{
		Auth:            authService,
		Login:           authService,
		Preregistration: preregistration.NewService(db),
		Usage:           usage.NewService(db, settingsService, publisher, loc, logger),
		Completion:      completion.New(cfg.Completion, logger),
		Activity:        activityService,
		Chats:           chatService,
		Sender:          chatService,
		Profile:         profile.NewService(db, activityService),
		Subscription:    subscriptionService,
		Webhook: payment.NewService(db, gateway, publisher, activityService, settingsService,
			cfg.SkipSignatureCheck, logger),
		Admin:    admin.NewService(db, cacheRedis, settingsService, activityService, logger),
		Settings: settingsService,
		Tokens:   jwtMaker,
		Health: map[string]health.Pinger{
			"database": db,
			"redis":    cacheRedis,
		},
	})

	// Потоковые обработчики сами продлевают дедлайн записи до stream_timeout.
	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// connectBroker подключается к RabbitMQ. Без брокера события не публикуются.
func (a *App) connectBroker(cfg config.RabbitMQ) rabbitmq.EventPublisher {
	if cfg.RabbitMQURL == "" {
		a.logger.Info("rabbitmq url is empty, subscription events are disabled")
		return rabbitmq.NoopPublisher{}
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		a.logger.Warn("rabbitmq is unavailable, subscription events are disabled", sl.Err(err))
		return rabbitmq.NoopPublisher{}
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		a.logger.Warn("failed to setup rabbitmq channel, subscription events are disabled", sl.Err(err))
		return rabbitmq.NoopPublisher{}
	}
	a.conn, a.ch = conn, ch
	return rabbitmq.NewPublisher(ch)
}

// Run обслуживает запросы до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
