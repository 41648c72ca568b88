package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/paymentprovider"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *RepoMock) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *RepoMock) InsertPaymentEvent(ctx context.Context, ev models.PaymentEvent) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) ApplySubscriptionChange(ctx context.Context, change models.SubscriptionChange) error {
	return m.Called(ctx, change).Error(0)
}

func (m *RepoMock) SetLastPaymentID(ctx context.Context, userID, paymentID string) error {
	return m.Called(ctx, userID, paymentID).Error(0)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) VerifySignature(n *paymentprovider.Notification) bool {
	return m.Called(n).Bool(0)
}

func (m *GatewayMock) GetSubscription(ctx context.Context, id string) (*paymentprovider.SubscriptionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.SubscriptionResponse), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

type ActivityMock struct{ mock.Mock }

func (m *ActivityMock) Log(ctx context.Context, userID, action, details, typ string) {
	m.Called(ctx, userID, action, details, typ)
}

type SettingsStub struct{ emails bool }

func (s SettingsStub) Current(context.Context) models.AppSettings {
	return models.AppSettings{EmailNotifications: s.emails}
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const userID = "0b7e4c1a-7a52-4e1b-9d7a-1f7a3f1f1a01"

var now = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

type deps struct {
	repo      *RepoMock
	gateway   *GatewayMock
	publisher *PublisherMock
	activity  *ActivityMock
}

func newTestService(skipSignature, emails bool) (*Service, deps) {
	d := deps{new(RepoMock), new(GatewayMock), new(PublisherMock), new(ActivityMock)}
	svc := NewService(d.repo, d.gateway, d.publisher, d.activity, SettingsStub{emails: emails}, skipSignature, newNoopLogger())
	svc.now = func() time.Time { return now }
	d.activity.On("Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return svc, d
}

func payload(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return raw
}

func profile() *models.Profile {
	return &models.Profile{ID: userID, Email: "kades@desa.id", Name: "Kades"}
}

func premiumChange(paymentID string, expiry time.Time, amount float64) models.SubscriptionChange {
	return models.SubscriptionChange{
		UserID:        userID,
		Status:        models.StatusPremium,
		Expiry:        &expiry,
		AmountPaid:    &amount,
		LastPaymentID: paymentID,
	}
}

func TestService_HandleMidtrans_Transactions(t *testing.T) {
	tests := []struct {
		name        string
		fields      map[string]any
		setup       func(r *RepoMock)
		wantOutcome Outcome
	}{
		{
			name: "ONETIME settlement на 30 дней",
			fields: map[string]any{
				"transaction_status": "settlement", "order_id": "ONETIME-1-0b7e4c1a",
				"transaction_id": "trx-1", "gross_amount": "99000.00", "custom_field1": userID,
			},
			setup: func(r *RepoMock) {
				r.On("ApplySubscriptionChange", mock.Anything,
					premiumChange("ONETIME-1-0b7e4c1a", now.Add(30*24*time.Hour), 99000)).Return(nil).Once()
			},
			wantOutcome: OutcomeApplied,
		},
		{
			name: "обычный заказ capture на месяц",
			fields: map[string]any{
				"transaction_status": "capture", "order_id": "ORDER-7",
				"transaction_id": "trx-2", "gross_amount": "150000.00", "custom_field1": userID,
			},
			setup: func(r *RepoMock) {
				r.On("ApplySubscriptionChange", mock.Anything,
					premiumChange("ORDER-7", now.AddDate(0, 1, 0), 150000)).Return(nil).Once()
			},
			wantOutcome: OutcomeApplied,
		},
		{
			name: "FIRST-PAY только запоминает платеж",
			fields: map[string]any{
				"transaction_status": "settlement", "order_id": "FIRST-PAY-1-0b7e4c1a",
				"transaction_id": "trx-3", "custom_field1": userID,
			},
			setup: func(r *RepoMock) {
				r.On("SetLastPaymentID", mock.Anything, userID, "FIRST-PAY-1-0b7e4c1a").Return(nil).Once()
			},
			wantOutcome: OutcomeApplied,
		},
		{
			name: "сумма по умолчанию",
			fields: map[string]any{
				"transaction_status": "settlement", "order_id": "ONETIME-2-0b7e4c1a",
				"metadata": map[string]any{"user_id": userID},
			},
			setup: func(r *RepoMock) {
				r.On("ApplySubscriptionChange", mock.Anything,
					premiumChange("ONETIME-2-0b7e4c1a", now.Add(30*24*time.Hour), 99000)).Return(nil).Once()
			},
			wantOutcome: OutcomeApplied,
		},
		{
			name: "pending только фиксируется",
			fields: map[string]any{
				"transaction_status": "pending", "order_id": "ONETIME-3-0b7e4c1a",
				"transaction_id": "trx-4", "custom_field1": userID,
			},
			setup:       func(_ *RepoMock) {},
			wantOutcome: OutcomeIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService(true, false)
			d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
			d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
			tt.setup(d.repo)

			outcome, err := svc.HandleMidtrans(context.Background(), payload(t, tt.fields))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)
			d.repo.AssertExpectations(t)
			d.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_HandleMidtrans_Replay(t *testing.T) {
	svc, d := newTestService(true, true)
	raw := payload(t, map[string]any{
		"transaction_status": "settlement", "order_id": "ONETIME-1-0b7e4c1a",
		"transaction_id": "trx-1", "custom_field1": userID,
	})
	d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Twice()
	d.repo.On("InsertPaymentEvent", mock.Anything, mock.MatchedBy(func(ev models.PaymentEvent) bool {
		return ev.EventKey == "trx-1:settlement" && ev.UserID == userID && string(ev.Payload) == string(raw)
	})).Return(true, nil).Once()
	d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(false, nil).Once()
	d.repo.On("ApplySubscriptionChange", mock.Anything, mock.Anything).Return(nil).Once()
	d.publisher.On("Publish", mock.Anything, rabbitmq.RoutingActivated, mock.MatchedBy(func(e models.SubscriptionEvent) bool {
		return e.Email == "kades@desa.id" && e.Status == models.StatusPremium && e.Expiry != nil
	})).Return(nil).Once()

	first, err := svc.HandleMidtrans(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first)

	second, err := svc.HandleMidtrans(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second)

	d.repo.AssertNumberOfCalls(t, "ApplySubscriptionChange", 1)
	d.publisher.AssertExpectations(t)
}

func TestService_HandleMidtrans_Subscriptions(t *testing.T) {
	t.Run("active подтверждается шлюзом", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.gateway.On("GetSubscription", mock.Anything, "sub-1").
			Return(&paymentprovider.SubscriptionResponse{
				ID: "sub-1", Status: "active", Metadata: map[string]any{"user_id": userID},
			}, nil).Once()
		d.repo.On("InsertPaymentEvent", mock.Anything, mock.MatchedBy(func(ev models.PaymentEvent) bool {
			return ev.EventKey == "sub-1:active"
		})).Return(true, nil).Once()
		d.repo.On("ApplySubscriptionChange", mock.Anything,
			premiumChange("sub-1", now.AddDate(0, 1, 0), 99000)).Return(nil).Once()

		outcome, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"subscription_id": "sub-1", "status": "active",
			"metadata": map[string]any{"user_id": userID, "description": "Patriot Desa"},
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		d.gateway.AssertNotCalled(t, "VerifySignature", mock.Anything)
		d.repo.AssertExpectations(t)
	})

	t.Run("шлюз сообщает другой статус", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.gateway.On("GetSubscription", mock.Anything, "sub-1").
			Return(&paymentprovider.SubscriptionResponse{ID: "sub-1", Status: "cancelled", CustomField1: userID}, nil).Once()
		d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
		d.repo.On("ApplySubscriptionChange", mock.Anything, models.SubscriptionChange{
			UserID: userID, Status: models.StatusFree, LastPaymentID: "sub-1",
		}).Return(nil).Once()

		outcome, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"subscription_id": "sub-1", "status": "active", "custom_field1": userID,
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		d.repo.AssertExpectations(t)
	})

	t.Run("подписка другого пользователя", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.gateway.On("GetSubscription", mock.Anything, "sub-own").
			Return(&paymentprovider.SubscriptionResponse{
				ID: "sub-own", Status: "cancelled", CustomField1: "5d0c2f4e-2c39-4f54-8e4f-6e0c3b7e9b12",
			}, nil).Once()

		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"subscription_id": "sub-own", "status": "cancelled", "custom_field1": userID,
		}))
		assert.ErrorIs(t, err, ErrInvalidSignature)
		d.repo.AssertNotCalled(t, "InsertPaymentEvent", mock.Anything, mock.Anything)
		d.repo.AssertNotCalled(t, "ApplySubscriptionChange", mock.Anything, mock.Anything)
	})

	t.Run("шлюз недоступен", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.gateway.On("GetSubscription", mock.Anything, "sub-1").Return(nil, errors.New("timeout")).Once()

		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"subscription_id": "sub-1", "status": "active", "custom_field1": userID,
		}))
		assert.Error(t, err)
		d.repo.AssertNotCalled(t, "InsertPaymentEvent", mock.Anything, mock.Anything)
	})
}

func TestService_HandleMidtrans_Rejects(t *testing.T) {
	t.Run("битый JSON", func(t *testing.T) {
		svc, _ := newTestService(true, false)
		_, err := svc.HandleMidtrans(context.Background(), []byte("{"))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("нет user_id", func(t *testing.T) {
		svc, _ := newTestService(true, false)
		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{"transaction_status": "settlement"}))
		assert.ErrorIs(t, err, ErrMissingUserID)
	})

	t.Run("неверная подпись", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.gateway.On("VerifySignature", mock.Anything).Return(false).Once()
		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		assert.ErrorIs(t, err, ErrInvalidSignature)
		d.repo.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("неизвестный пользователь", func(t *testing.T) {
		svc, _ := newTestService(true, false)
		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "custom_field1": "not-a-uuid",
		}))
		assert.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("профиль не найден", func(t *testing.T) {
		svc, d := newTestService(true, false)
		d.repo.On("GetProfile", mock.Anything, userID).
			Return(nil, fmt.Errorf("storage.GetProfile: %w", repository.ErrNotFound)).Once()
		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		assert.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("база недоступна при чтении профиля", func(t *testing.T) {
		svc, d := newTestService(true, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("connection refused")).Once()
		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnknownUser)
		d.repo.AssertNotCalled(t, "InsertPaymentEvent", mock.Anything, mock.Anything)
	})

	t.Run("ошибка записи не подтверждается", func(t *testing.T) {
		svc, d := newTestService(true, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
		d.repo.On("ApplySubscriptionChange", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, err := svc.HandleMidtrans(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		assert.Error(t, err)
	})
}

func TestService_HandlePayment(t *testing.T) {
	t.Run("ONETIME settlement", func(t *testing.T) {
		svc, d := newTestService(false, false)
		d.gateway.On("VerifySignature", mock.Anything).Return(true).Once()
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()
		d.repo.On("ApplySubscriptionChange", mock.Anything,
			premiumChange("ONETIME-1", now.Add(30*24*time.Hour), 99000)).Return(nil).Once()

		outcome, err := svc.HandlePayment(context.Background(), payload(t, map[string]any{
			"transaction_status": "settlement", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		d.repo.AssertExpectations(t)
	})

	t.Run("capture не меняет тариф", func(t *testing.T) {
		svc, d := newTestService(true, false)
		d.repo.On("GetProfile", mock.Anything, userID).Return(profile(), nil).Once()
		d.repo.On("InsertPaymentEvent", mock.Anything, mock.Anything).Return(true, nil).Once()

		outcome, err := svc.HandlePayment(context.Background(), payload(t, map[string]any{
			"transaction_status": "capture", "order_id": "ONETIME-1", "custom_field1": userID,
		}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
		d.repo.AssertNotCalled(t, "ApplySubscriptionChange", mock.Anything, mock.Anything)
	})
}
