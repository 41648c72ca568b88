// Package services содержит логику панели администратора: статистику,
// управление пользователями и глобальными настройками.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/cache"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

const (
	statsKey = cache.KeyDashboardStats
	statsTTL = time.Minute

	defaultPageSize = 100
)

// Repository запросы панели администратора.
type Repository interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	UserGrowth(ctx context.Context) ([]models.GrowthPoint, error)
	QueryDistribution(ctx context.Context) ([]models.CategoryCount, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	AdminUpdateProfile(ctx context.Context, userID string, upd models.UserUpdate) (*models.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
	ResetUsage(ctx context.Context, userID string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Settings глобальные настройки.
type Settings interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, st models.AppSettings) (*models.AppSettings, error)
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
	List(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

// Service реализует операции администратора.
type Service struct {
	repo     Repository
	cache    Cache
	settings Settings
	activity Activity
	log      *slog.Logger
}

// NewService создает сервис администратора.
func NewService(repo Repository, cache Cache, settings Settings, activity Activity, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		settings: settings,
		activity: activity,
		log:      log,
	}
}

// Stats возвращает сводку панели, кэшируя ее на минуту.
func (s *Service) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const op = "services.Admin.Stats"
	log := s.log.With(slog.String("op", op))

	var cached models.DashboardStats
	found, err := s.cache.Get(statsKey, &cached)
	if err != nil {
		log.Warn("dashboard cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(statsKey, stats, statsTTL); err != nil {
		log.Warn("dashboard cache write failed", sl.Err(err))
	}
	return stats, nil
}

// UserGrowth возвращает регистрации по месяцам за последний год.
func (s *Service) UserGrowth(ctx context.Context) ([]models.GrowthPoint, error) {
	const op = "services.Admin.UserGrowth"
	points, err := s.repo.UserGrowth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return points, nil
}

// QueryDistribution возвращает число вопросов по категориям.
func (s *Service) QueryDistribution(ctx context.Context) ([]models.CategoryCount, error) {
	const op = "services.Admin.QueryDistribution"
	dist, err := s.repo.QueryDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return dist, nil
}

// Users возвращает страницу пользователей.
func (s *Service) Users(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	const op = "services.Admin.Users"
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.ListProfiles(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// UpdateUser меняет разрешенные поля профиля.
func (s *Service) UpdateUser(ctx context.Context, adminID, userID string, upd models.UserUpdate) (*models.Profile, error) {
	const op = "services.Admin.UpdateUser"
	p, err := s.repo.AdminUpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.afterMutation(ctx, adminID, "Updated user", "User "+userID)
	return p, nil
}

// DeleteUser удаляет пользователя вместе с его данными.
func (s *Service) DeleteUser(ctx context.Context, adminID, userID string) error {
	const op = "services.Admin.DeleteUser"
	if err := s.repo.DeleteProfile(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.afterMutation(ctx, adminID, "Deleted user", "User "+userID)
	return nil
}

// ResetQuota обнуляет дневной счетчик пользователя.
func (s *Service) ResetQuota(ctx context.Context, adminID, userID string) error {
	const op = "services.Admin.ResetQuota"
	if err := s.repo.ResetUsage(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.afterMutation(ctx, adminID, "Reset quota", "User "+userID)
	return nil
}

// Activity возвращает последние записи журнала.
func (s *Service) Activity(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	const op = "services.Admin.Activity"
	entries, err := s.activity.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// Settings возвращает текущие настройки.
func (s *Service) Settings(ctx context.Context) (*models.AppSettings, error) {
	const op = "services.Admin.Settings"
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// UpdateSettings сохраняет настройки.
func (s *Service) UpdateSettings(ctx context.Context, adminID string, st models.AppSettings) (*models.AppSettings, error) {
	const op = "services.Admin.UpdateSettings"
	updated, err := s.settings.Update(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.activity.Log(ctx, adminID, "Updated settings", "Site "+updated.SiteName, models.ActivityAdminAction)
	return updated, nil
}

// afterMutation пишет журнал и сбрасывает кэш сводки.
func (s *Service) afterMutation(ctx context.Context, adminID, action, details string) {
	s.activity.Log(ctx, adminID, action, details, models.ActivityAdminAction)
	if err := s.cache.Invalidate(statsKey); err != nil {
		s.log.Warn("dashboard cache invalidate failed", sl.Err(err))
	}
}
