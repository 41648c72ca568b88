package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) DowngradeExpired(ctx context.Context, now time.Time) ([]*models.Profile, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Profile), args.Error(1)
}

func (m *RepoMock) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppSettings), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var now = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func TestSchedulerService_Sweep(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *RepoMock, p *PublisherMock)
		wantCount int
	}{
		{
			name: "два истекших профиля",
			setup: func(r *RepoMock, p *PublisherMock) {
				r.On("DowngradeExpired", mock.Anything, now).Return([]*models.Profile{
					{ID: "u1", Email: "a@desa.id", Name: "A"},
					{ID: "u2", Email: "b@desa.id"},
				}, nil).Once()
				r.On("GetSettings", mock.Anything).Return(&models.AppSettings{EmailNotifications: true}, nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingExpired,
					models.SubscriptionEvent{UserID: "u1", Email: "a@desa.id", Name: "A", Status: models.StatusFree}).Return(nil).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingExpired,
					models.SubscriptionEvent{UserID: "u2", Email: "b@desa.id", Status: models.StatusFree}).Return(errors.New("channel closed")).Once()
			},
			wantCount: 2,
		},
		{
			name: "письма отключены",
			setup: func(r *RepoMock, _ *PublisherMock) {
				r.On("DowngradeExpired", mock.Anything, now).Return([]*models.Profile{{ID: "u1", Email: "a@desa.id"}}, nil).Once()
				r.On("GetSettings", mock.Anything).Return(&models.AppSettings{EmailNotifications: false}, nil).Once()
			},
			wantCount: 1,
		},
		{
			name: "настройки недоступны",
			setup: func(r *RepoMock, p *PublisherMock) {
				r.On("DowngradeExpired", mock.Anything, now).Return([]*models.Profile{{ID: "u1", Email: "a@desa.id"}}, nil).Once()
				r.On("GetSettings", mock.Anything).Return(nil, errors.New("db down")).Once()
				p.On("Publish", mock.Anything, rabbitmq.RoutingExpired,
					models.SubscriptionEvent{UserID: "u1", Email: "a@desa.id", Status: models.StatusFree}).Return(nil).Once()
			},
			wantCount: 1,
		},
		{
			name: "нечего понижать",
			setup: func(r *RepoMock, _ *PublisherMock) {
				r.On("DowngradeExpired", mock.Anything, now).Return([]*models.Profile{}, nil).Once()
			},
		},
		{
			name: "ошибка базы",
			setup: func(r *RepoMock, _ *PublisherMock) {
				r.On("DowngradeExpired", mock.Anything, now).Return(nil, errors.New("db down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			publisher := new(PublisherMock)
			tt.setup(repo, publisher)

			svc := NewSchedulerService(repo, publisher, newNoopLogger())
			svc.now = func() time.Time { return now }

			assert.Equal(t, tt.wantCount, svc.Sweep(context.Background()))
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_Run_StopsOnCancel(t *testing.T) {
	var sweeps atomic.Int32
	repo := new(RepoMock)
	repo.On("DowngradeExpired", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return([]*models.Profile{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSchedulerService(repo, new(PublisherMock), newNoopLogger()).Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
