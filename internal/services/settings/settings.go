// Package services содержит логику глобальных настроек приложения с кэшированием в Redis.
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
	cacheKey = cache.KeySettings
	cacheTTL = 5 * time.Minute
)

// Repository хранилище строки настроек.
type Repository interface {
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	UpsertSettings(ctx context.Context, st models.AppSettings) (*models.AppSettings, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service читает и обновляет настройки.
type Service struct {
	repo     Repository
	cache    Cache
	log      *slog.Logger
	fallback models.AppSettings
}

// NewService создает сервис. freeDailyLimit из конфига используется,
// когда строку настроек прочитать не удалось.
func NewService(repo Repository, cache Cache, log *slog.Logger, freeDailyLimit int) *Service {
	fallback := models.DefaultSettings()
	if freeDailyLimit > 0 {
		fallback.MaxFreeQueries = freeDailyLimit
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		log:      log,
		fallback: fallback,
	}
}

// Get возвращает настройки из кэша или из базы.
func (s *Service) Get(ctx context.Context) (*models.AppSettings, error) {
	const op = "services.Settings.Get"

	var cached models.AppSettings
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read settings from cache", slog.String("op", op), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(cacheKey, st, cacheTTL); err != nil {
		s.log.Warn("failed to cache settings", slog.String("op", op), sl.Err(err))
	}
	return st, nil
}

// Current как Get, но при ошибке возвращает значения по умолчанию.
func (s *Service) Current(ctx context.Context) models.AppSettings {
	st, err := s.Get(ctx)
	if err != nil {
		s.log.Error("settings unavailable, using defaults", sl.Err(err))
		return s.fallback
	}
	return *st
}

// Update сохраняет настройки и сбрасывает кэш.
func (s *Service) Update(ctx context.Context, st models.AppSettings) (*models.AppSettings, error) {
	const op = "services.Settings.Update"
	saved, err := s.repo.UpsertSettings(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate settings cache", slog.String("op", op), sl.Err(err))
	}
	return saved, nil
}
