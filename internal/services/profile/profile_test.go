package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *RepoMock) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type ActivityMock struct{ mock.Mock }

func (m *ActivityMock) Log(ctx context.Context, userID, action, details, typ string) {
	m.Called(ctx, userID, action, details, typ)
}

func ptr(s string) *string { return &s }

func TestService_Update(t *testing.T) {
	repo := new(RepoMock)
	activity := new(ActivityMock)
	want := models.ProfileUpdate{Name: ptr("Bu Sekdes"), Role: ptr(models.RolePendamping)}
	repo.On("UpdateProfile", mock.Anything, "u1", want).
		Return(&models.Profile{ID: "u1", Name: "Bu Sekdes", Role: want.Role}, nil).Once()
	activity.On("Log", mock.Anything, "u1", "Profile updated", "Updated name, role", models.ActivityProfileUpdate).Once()

	p, err := NewService(repo, activity).Update(context.Background(), "u1", models.ProfileUpdate{
		Name: ptr(" <i>Bu Sekdes</i> "),
		Role: ptr(models.RolePendamping),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bu Sekdes", p.Name)
	repo.AssertExpectations(t)
	activity.AssertExpectations(t)
}

func TestService_Update_KeepsPlainSymbols(t *testing.T) {
	repo := new(RepoMock)
	activity := new(ActivityMock)
	name := `Pak "Ma'ruf" & Bu Siti`
	repo.On("UpdateProfile", mock.Anything, "u1", models.ProfileUpdate{Name: ptr(name)}).
		Return(&models.Profile{ID: "u1", Name: name}, nil).Once()
	activity.On("Log", mock.Anything, "u1", "Profile updated", mock.Anything, models.ActivityProfileUpdate).Once()

	p, err := NewService(repo, activity).Update(context.Background(), "u1", models.ProfileUpdate{
		Name: ptr(" <b>" + name + "</b> "),
	})
	require.NoError(t, err)
	assert.Equal(t, name, p.Name)
	repo.AssertExpectations(t)
}

func TestService_Update_AdminRole(t *testing.T) {
	repo := new(RepoMock)
	activity := new(ActivityMock)

	_, err := NewService(repo, activity).Update(context.Background(), "u1", models.ProfileUpdate{Role: ptr(models.RoleAdmin)})
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
	repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
