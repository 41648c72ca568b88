package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/patriot-desa/internal/http/middlewarectx"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	profile "github.com/magabrotheeeer/patriot-desa/internal/services/profile"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Get(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *ServiceMock) Update(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withUser(req *http.Request) *http.Request {
	return req.WithContext(middlewarectx.WithUser(req.Context(), "u1", "kades@desa.id", ""))
}

func TestHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(m *ServiceMock)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "профиль найден",
			setup: func(m *ServiceMock) {
				m.On("Get", mock.Anything, "u1").Return(&models.Profile{ID: "u1", Name: "Pak Kades", SubscriptionStatus: models.StatusFree}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"name":"Pak Kades"`,
		},
		{
			name: "профиль удален",
			setup: func(m *ServiceMock) {
				m.On("Get", mock.Anything, "u1").Return(nil, fmt.Errorf("op: %w", repository.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "profile not found",
		},
		{
			name: "ошибка базы",
			setup: func(m *ServiceMock) {
				m.On("Get", mock.Anything, "u1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to load profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(ServiceMock)
			tt.setup(m)
			w := httptest.NewRecorder()

			New(newNoopLogger(), m).Get(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "password")
			m.AssertExpectations(t)
		})
	}
}

func TestHandler_Update(t *testing.T) {
	role := models.RoleBumdes
	name := "Bu Sekdes"

	tests := []struct {
		name           string
		body           string
		setup          func(m *ServiceMock)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "смена роли и имени",
			body: `{"name":"Bu Sekdes","role":"bumdes"}`,
			setup: func(m *ServiceMock) {
				m.On("Update", mock.Anything, "u1", models.ProfileUpdate{Name: &name, Role: &role}).
					Return(&models.Profile{ID: "u1", Name: name, Role: &role}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"role":"bumdes"`,
		},
		{
			name:           "роль admin отклоняется валидацией",
			body:           `{"role":"admin"}`,
			setup:          func(_ *ServiceMock) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field Role must be one of",
		},
		{
			name: "сервис запрещает роль",
			body: `{"role":"umum"}`,
			setup: func(m *ServiceMock) {
				m.On("Update", mock.Anything, "u1", mock.Anything).Return(nil, fmt.Errorf("op: %w", profile.ErrRoleNotAllowed))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   profile.ErrRoleNotAllowed.Error(),
		},
		{
			name:           "битый JSON",
			body:           `{`,
			setup:          func(_ *ServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(ServiceMock)
			tt.setup(m)
			w := httptest.NewRecorder()
			req := withUser(httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(tt.body)))

			New(newNoopLogger(), m).Update(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			m.AssertExpectations(t)
		})
	}
}
