// Package services периодически понижает истекшие премиум-подписки.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
)

// SubscriptionRepository понижение истекших профилей.
type SubscriptionRepository interface {
	DowngradeExpired(ctx context.Context, now time.Time) ([]*models.Profile, error)
	GetSettings(ctx context.Context) (*models.AppSettings, error)
}

// Publisher публикует события о подписке.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SchedulerService выполняет обход истекших подписок.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	now       func() time.Time
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		log:       log,
	}
}

// Run выполняет обход сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.Sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.log.Info("expiry sweep stopped")
			return
		}
	}
}

// Sweep понижает все истекшие премиум-профили и публикует событие для каждого.
// Возвращает число пониженных профилей.
func (s *SchedulerService) Sweep(ctx context.Context) int {
	const op = "services.Scheduler.Sweep"
	log := s.log.With(slog.String("op", op))

	log.Info("starting expiry sweep")
	expired, err := s.repo.DowngradeExpired(ctx, s.now())
	if err != nil {
		log.Error("failed to downgrade expired subscriptions", sl.Err(err))
		return 0
	}
	if len(expired) == 0 {
		log.Info("no expired subscriptions found")
		return 0
	}

	log.Info("downgraded expired subscriptions", slog.Int("count", len(expired)))
	metrics.SubscriptionsDowngraded.WithLabelValues("sweep").Add(float64(len(expired)))
	if !s.emailsEnabled(ctx) {
		log.Info("email notifications disabled, skipping expiry events")
		return len(expired)
	}
	for _, p := range expired {
		event := models.SubscriptionEvent{UserID: p.ID, Email: p.Email, Name: p.Name, Status: models.StatusFree}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingExpired, event); err != nil {
			log.Error("failed to publish message", sl.UserID(p.ID), sl.Err(err))
		}
	}
	return len(expired)
}

func (s *SchedulerService) emailsEnabled(ctx context.Context) bool {
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		s.log.Error("settings unavailable, using defaults", sl.Err(err))
		return models.DefaultSettings().EmailNotifications
	}
	return st.EmailNotifications
}
