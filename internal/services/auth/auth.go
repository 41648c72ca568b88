// Package services содержит логику регистрации и входа пользователей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/jwt"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/password"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// ErrInvalidCredentials неверная почта или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateProfile сохраняет нового пользователя и возвращает его ID.
	CreateProfile(ctx context.Context, p models.Profile) (string, error)

	// GetProfileByEmail возвращает пользователя по почте или ErrNotFound.
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// AuthService отвечает за регистрацию и выдачу JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	activity Activity
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, activity Activity, loc *time.Location, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		activity: activity,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// Register создает пользователя на бесплатном тарифе. Роль выбирается
// позже в профиле.
func (s *AuthService) Register(ctx context.Context, email, name, rawPassword string) (string, error) {
	const op = "services.Auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.users.CreateProfile(ctx, models.Profile{
		Email:              normalizeEmail(email),
		PasswordHash:       hashed,
		Name:               strings.TrimSpace(name),
		SubscriptionStatus: models.StatusFree,
		DailyUsageResetAt:  models.NextMidnight(s.now(), s.loc),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", sl.UserID(id))
	return id, nil
}

// Login проверяет пароль и выдает JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.Profile, error) {
	const op = "services.Auth.Login"
	user, err := s.users.GetProfileByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email, user.RoleName())
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	s.activity.Log(ctx, user.ID, "User login", "Login with email", models.ActivityLogin)
	return token, user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
