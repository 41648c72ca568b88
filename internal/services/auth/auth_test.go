package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/patriot-desa/internal/lib/jwt"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/password"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	services "github.com/magabrotheeeer/patriot-desa/internal/services/auth"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateProfile(ctx context.Context, p models.Profile) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type ActivityMock struct{ mock.Mock }

func (m *ActivityMock) Log(ctx context.Context, userID, action, details, typ string) {
	m.Called(ctx, userID, action, details, typ)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var wib = time.FixedZone("WIB", 7*60*60)

func TestAuthService_Register(t *testing.T) {
	repo := new(UserRepoMock)
	maker := customjwt.NewJWTMaker("secret", time.Hour)
	svc := services.NewAuthService(repo, maker, new(ActivityMock), wib, newNoopLogger())

	repo.On("CreateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
		return p.Email == "kades@desa.id" &&
			p.Name == "Pak Kades" &&
			p.SubscriptionStatus == models.StatusFree &&
			p.Role == nil &&
			password.CompareHash(p.PasswordHash, "rahasia123") == nil &&
			p.DailyUsageResetAt.After(time.Now()) &&
			p.DailyUsageResetAt.In(wib).Hour() == 0
	})).Return("u1", nil).Once()

	id, err := svc.Register(context.Background(), "  KaDes@Desa.id ", " Pak Kades ", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := new(UserRepoMock)
	svc := services.NewAuthService(repo, customjwt.NewJWTMaker("secret", time.Hour), new(ActivityMock), wib, newNoopLogger())
	repo.On("CreateProfile", mock.Anything, mock.Anything).Return("", repository.ErrAlreadyExists).Once()

	_, err := svc.Register(context.Background(), "a@b.c", "", "pass")
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("rahasia123")
	require.NoError(t, err)
	role := models.RoleAparatur
	user := &models.Profile{ID: "u1", Email: "kades@desa.id", PasswordHash: hash, Role: &role}

	tests := []struct {
		name     string
		password string
		setup    func(r *UserRepoMock, a *ActivityMock)
		wantErr  error
		wantFail bool
	}{
		{
			name:     "успешный вход",
			password: "rahasia123",
			setup: func(r *UserRepoMock, a *ActivityMock) {
				r.On("GetProfileByEmail", mock.Anything, "kades@desa.id").Return(user, nil).Once()
				a.On("Log", mock.Anything, "u1", "User login", mock.Anything, models.ActivityLogin).Once()
			},
		},
		{
			name:     "неверный пароль",
			password: "salah",
			setup: func(r *UserRepoMock, _ *ActivityMock) {
				r.On("GetProfileByEmail", mock.Anything, "kades@desa.id").Return(user, nil).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:     "нет такого пользователя",
			password: "rahasia123",
			setup: func(r *UserRepoMock, _ *ActivityMock) {
				r.On("GetProfileByEmail", mock.Anything, "kades@desa.id").Return(nil, repository.ErrNotFound).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:     "ошибка базы",
			password: "rahasia123",
			setup: func(r *UserRepoMock, _ *ActivityMock) {
				r.On("GetProfileByEmail", mock.Anything, "kades@desa.id").Return(nil, errors.New("connection reset")).Once()
			},
			wantFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			activity := new(ActivityMock)
			maker := customjwt.NewJWTMaker("secret", time.Hour)
			tt.setup(repo, activity)

			token, got, err := services.NewAuthService(repo, maker, activity, wib, newNoopLogger()).
				Login(context.Background(), "KADES@desa.id", tt.password)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			case tt.wantFail:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, services.ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				assert.Equal(t, user, got)
				claims, err := maker.ParseToken(token)
				require.NoError(t, err)
				assert.Equal(t, "u1", claims.UserUID)
				assert.Equal(t, models.RoleAparatur, claims.Role)
				activity.AssertExpectations(t)
			}
		})
	}
}
