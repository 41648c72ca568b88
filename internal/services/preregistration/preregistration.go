// Package services принимает предварительные регистрации по почте.
package services

import (
	"context"
	"fmt"
	"strings"
)

// Repository хранилище предрегистраций.
type Repository interface {
	CreatePreRegistration(ctx context.Context, email string) error
}

// Service сохраняет почту для уведомления о запуске.
type Service struct {
	repo Repository
}

// NewService создает сервис предрегистраций.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register сохраняет почту в нижнем регистре. Повтор возвращает ErrAlreadyExists хранилища.
func (s *Service) Register(ctx context.Context, email string) (string, error) {
	const op = "services.PreRegistration.Register"
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.repo.CreatePreRegistration(ctx, email); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return email, nil
}
