// Package services реализует суточный лимит запросов бесплатного тарифа
// и сверку статуса подписки при каждом обращении.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
)

// ErrQuotaExceeded бесплатный пользователь исчерпал суточный лимит.
var ErrQuotaExceeded = errors.New("daily free quota exhausted, upgrade to premium")

// Repository операции над счетчиком использования.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	GetProfileForUpdate(ctx context.Context, userID string) (*models.Profile, error)
	SetUsage(ctx context.Context, userID string, count int, resetAt time.Time) error
	DecrementUsage(ctx context.Context, userID string) error
	ApplySubscriptionChange(ctx context.Context, change models.SubscriptionChange) error
}

// Settings источник текущего лимита.
type Settings interface {
	Current(ctx context.Context) models.AppSettings
}

// Publisher публикует события о подписке.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service считает использование.
type Service struct {
	repo      Repository
	settings  Settings
	publisher Publisher
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger
}

// NewService создает сервис лимитов. loc задает часовой пояс суточного сброса.
func NewService(repo Repository, settings Settings, publisher Publisher, loc *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		settings:  settings,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Load применяет суточный сброс и понижение истекшего премиума, если они
// наступили, и возвращает состояние лимита.
func (s *Service) Load(ctx context.Context, userID string) (*models.UsageState, error) {
	const op = "services.Usage.Load"
	current := s.settings.Current(ctx)

	var (
		state   *models.UsageState
		expired *models.Profile
	)
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		p, downgraded, err := s.lockAndReset(ctx, userID)
		if err != nil {
			return err
		}
		if downgraded {
			expired = p
		}
		state = s.state(p, current.FreeLimit(), downgraded)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notifyExpired(ctx, expired, current)
	return state, nil
}

// Reserve списывает одну единицу лимита. Проверка и увеличение выполняются
// под блокировкой строки профиля, поэтому параллельные запросы не превысят лимит.
// Премиум-пользователи не блокируются, но счетчик у них тоже растет.
func (s *Service) Reserve(ctx context.Context, userID string) (*models.UsageState, error) {
	const op = "services.Usage.Reserve"
	current := s.settings.Current(ctx)
	limit := current.FreeLimit()

	var (
		state    *models.UsageState
		expired  *models.Profile
		exceeded bool
	)
	// отказ по лимиту не откатывает транзакцию: сброс и понижение тарифа сохраняются
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		p, downgraded, err := s.lockAndReset(ctx, userID)
		if err != nil {
			return err
		}
		if downgraded {
			expired = p
		}
		if p.EffectiveStatus(s.now()) == models.StatusFree && p.UsageCount >= limit {
			exceeded = true
			return nil
		}
		p.UsageCount++
		if err := s.repo.SetUsage(ctx, userID, p.UsageCount, p.DailyUsageResetAt); err != nil {
			return err
		}
		state = s.state(p, limit, downgraded)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.notifyExpired(ctx, expired, current)
	if exceeded {
		metrics.QuotaRejected.Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}
	return state, nil
}

// Release возвращает единицу лимита, если запрос к модели не состоялся.
func (s *Service) Release(ctx context.Context, userID string) error {
	const op = "services.Usage.Release"
	if err := s.repo.DecrementUsage(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// lockAndReset блокирует профиль, понижает истекший премиум и применяет
// суточный сброс. downgraded истинно, если тариф понижен в этом вызове.
func (s *Service) lockAndReset(ctx context.Context, userID string) (*models.Profile, bool, error) {
	p, err := s.repo.GetProfileForUpdate(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	now := s.now()

	downgraded := p.PremiumExpired(now)
	if downgraded {
		if err := s.repo.ApplySubscriptionChange(ctx, models.SubscriptionChange{
			UserID: userID,
			Status: models.StatusFree,
		}); err != nil {
			return nil, false, err
		}
		p.SubscriptionStatus = models.StatusFree
		p.SubscriptionExpiry = nil
	}

	if p.NeedsDailyReset(now) {
		p.UsageCount = 0
		p.DailyUsageResetAt = models.NextMidnight(now, s.loc)
		if err := s.repo.SetUsage(ctx, userID, 0, p.DailyUsageResetAt); err != nil {
			return nil, false, err
		}
		s.log.Debug("daily usage reset", sl.UserID(userID))
	}
	return p, downgraded, nil
}

func (s *Service) notifyExpired(ctx context.Context, p *models.Profile, current models.AppSettings) {
	if p == nil {
		return
	}
	s.log.Info("premium expired, downgraded to free", sl.UserID(p.ID))
	metrics.SubscriptionsDowngraded.WithLabelValues("usage").Inc()
	if !current.EmailNotifications {
		return
	}
	event := models.SubscriptionEvent{UserID: p.ID, Email: p.Email, Name: p.Name, Status: models.StatusFree}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingExpired, event); err != nil {
		s.log.Error("failed to publish expiry event", sl.UserID(p.ID), sl.Err(err))
	}
}

// state собирает ответ. Для премиума Remaining равен -1: лимита нет.
func (s *Service) state(p *models.Profile, limit int, downgraded bool) *models.UsageState {
	now := s.now()
	st := &models.UsageState{
		UsageCount:         p.UsageCount,
		Limit:              limit,
		SubscriptionStatus: p.EffectiveStatus(now),
		SubscriptionExpiry: p.SubscriptionExpiry,
		ResetAt:            p.DailyUsageResetAt,
	}
	switch {
	case st.SubscriptionStatus == models.StatusPremium:
		st.State = models.StatePremiumActive
		st.Remaining = -1
		return st
	case downgraded:
		st.State = models.StatePremiumExpired
	case p.UsageCount >= limit:
		st.State = models.StateFreeOverQuota
	default:
		st.State = models.StateFreeUnderQuota
	}
	st.Remaining = max(limit-p.UsageCount, 0)
	return st
}
