// Package services содержит логику профиля пользователя.
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// ErrRoleNotAllowed роль нельзя выбрать самостоятельно.
var ErrRoleNotAllowed = errors.New("role cannot be self-assigned")

// Repository хранилище профилей.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error)
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// Service читает и обновляет профиль.
type Service struct {
	repo     Repository
	activity Activity
	policy   *bluemonday.Policy
}

// NewService создает сервис профиля.
func NewService(repo Repository, activity Activity) *Service {
	return &Service{repo: repo, activity: activity, policy: bluemonday.StrictPolicy()}
}

// Get возвращает профиль пользователя.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "services.Profile.Get"
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Update меняет имя, роль и телефон. Роль admin выбрать нельзя.
func (s *Service) Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	const op = "services.Profile.Update"
	if upd.Role != nil && !models.SelectableRole(*upd.Role) {
		return nil, fmt.Errorf("%s: %w", op, ErrRoleNotAllowed)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(*upd.Name)))
		upd.Name = &name
	}
	p, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.activity.Log(ctx, userID, "Profile updated", changedFields(upd), models.ActivityProfileUpdate)
	return p, nil
}

func changedFields(upd models.ProfileUpdate) string {
	var fields []string
	if upd.Name != nil {
		fields = append(fields, "name")
	}
	if upd.Role != nil {
		fields = append(fields, "role")
	}
	if upd.PhoneNumber != nil {
		fields = append(fields, "phone_number")
	}
	return "Updated " + strings.Join(fields, ", ")
}
