// Package services ведет журнал активности пользователей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// ErrInvalidType неизвестный тип записи.
var ErrInvalidType = errors.New("invalid activity type")

// Repository хранилище журнала.
type Repository interface {
	CreateActivity(ctx context.Context, entry models.ActivityLog) error
	ListActivity(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

// Service пишет и читает журнал активности.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис журнала.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Log пишет запись от имени сервера. Ошибка записи только логируется:
// журнал не должен ломать основную операцию.
func (s *Service) Log(ctx context.Context, userID, action, details, typ string) {
	entry := models.ActivityLog{Action: action, Details: details, Type: typ}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.repo.CreateActivity(ctx, entry); err != nil {
		s.log.Error("failed to write activity log",
			slog.String("action", action), sl.UserID(userID), sl.Err(err))
	}
}

// Record сохраняет запись, присланную клиентом.
func (s *Service) Record(ctx context.Context, userID string, entry models.ActivityLog) error {
	const op = "services.Activity.Record"
	if !models.ActivityType(entry.Type) {
		return fmt.Errorf("%s: %w", op, ErrInvalidType)
	}
	entry.UserID = &userID
	if err := s.repo.CreateActivity(ctx, entry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// List возвращает последние limit записей.
func (s *Service) List(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	const op = "services.Activity.List"
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	entries, err := s.repo.ListActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}
