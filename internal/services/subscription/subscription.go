// Package services содержит логику подписки: проверку статуса с понижением
// истекшего премиума и оформление оплаты через Midtrans.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/paymentprovider"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
)

// ExpiredMessage сообщение клиенту после понижения тарифа.
const ExpiredMessage = "Subscription expired and downgraded to free"

// Repository операции над профилем и подпиской.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	GetProfileForUpdate(ctx context.Context, userID string) (*models.Profile, error)
	ApplySubscriptionChange(ctx context.Context, change models.SubscriptionChange) error
	SetPaymentToken(ctx context.Context, userID, token string) error
}

// Gateway платежный шлюз.
type Gateway interface {
	CreateSnapTransaction(ctx context.Context, req paymentprovider.SnapRequest) (*paymentprovider.SnapResponse, error)
	CreateSubscription(ctx context.Context, req paymentprovider.SubscriptionRequest) (*paymentprovider.SubscriptionResponse, error)
}

// Publisher публикует события о подписке.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// Settings источник цены подписки и переключателя писем.
type Settings interface {
	Current(ctx context.Context) models.AppSettings
}

// Customer данные покупателя для страницы оплаты.
type Customer struct {
	Name  string
	Email string
}

// Checkout результат создания Snap-транзакции.
type Checkout struct {
	OrderID     string
	SnapToken   string
	RedirectURL string
}

// Recurring результат оформления рекуррентной подписки.
type Recurring struct {
	SubscriptionID   string
	SubscriptionName string
	Status           string
	Expiry           time.Time
}

// Service реализует операции подписки.
type Service struct {
	repo      Repository
	gateway   Gateway
	publisher Publisher
	activity  Activity
	settings  Settings
	loc       *time.Location
	now       func() time.Time
	log       *slog.Logger
}

// NewService создает сервис подписки.
func NewService(repo Repository, gateway Gateway, publisher Publisher, activity Activity,
	settings Settings, loc *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		activity:  activity,
		settings:  settings,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Check возвращает статус подписки. Истекший премиум понижается до
// бесплатного в одной транзакции с записью в строку подписки.
func (s *Service) Check(ctx context.Context, userID string) (*models.SubscriptionCheck, error) {
	const op = "services.Subscription.Check"
	log := s.log.With(slog.String("op", op), sl.UserID(userID))

	var (
		result  *models.SubscriptionCheck
		expired *models.Profile
	)
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetProfileForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !p.PremiumExpired(s.now()) {
			result = &models.SubscriptionCheck{Status: p.SubscriptionStatus, Expiry: p.SubscriptionExpiry}
			return nil
		}
		if err := s.repo.ApplySubscriptionChange(ctx, models.SubscriptionChange{
			UserID: userID,
			Status: models.StatusFree,
		}); err != nil {
			return err
		}
		expired = p
		result = &models.SubscriptionCheck{Status: models.StatusFree, Expired: true, Message: ExpiredMessage}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expired != nil {
		log.Info("premium expired, downgraded to free")
		metrics.SubscriptionsDowngraded.WithLabelValues("check").Inc()
		s.activity.Log(ctx, userID, "Subscription expired", "Downgraded to free", models.ActivitySubscription)
		event := models.SubscriptionEvent{UserID: userID, Email: expired.Email, Name: expired.Name, Status: models.StatusFree}
		if err := s.publish(ctx, rabbitmq.RoutingExpired, event); err != nil {
			log.Error("failed to publish expiry event", sl.Err(err))
		}
	}
	return result, nil
}

// CreateOneTime создает Snap-транзакцию разовой оплаты на 30 дней.
func (s *Service) CreateOneTime(ctx context.Context, userID string, c Customer) (*Checkout, error) {
	const op = "services.Subscription.CreateOneTime"
	orderID := s.orderID("ONETIME", userID)
	resp, err := s.gateway.CreateSnapTransaction(ctx, paymentprovider.SnapRequest{
		TransactionDetails: paymentprovider.TransactionDetails{OrderID: orderID, GrossAmount: s.price(ctx)},
		CreditCard:         &paymentprovider.CreditCard{Secure: true},
		CustomerDetails:    paymentprovider.CustomerDetails{FirstName: c.Name, Email: c.Email},
		EnabledPayments:    []string{"credit_card"},
		CustomField1:       userID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("one-time checkout created", slog.String("order_id", orderID), sl.UserID(userID))
	return &Checkout{OrderID: orderID, SnapToken: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// CreateFirstPayment создает первую оплату с сохранением карты для рекуррентных списаний.
func (s *Service) CreateFirstPayment(ctx context.Context, userID string, c Customer) (*Checkout, error) {
	const op = "services.Subscription.CreateFirstPayment"
	orderID := s.orderID("FIRST-PAY", userID)
	resp, err := s.gateway.CreateSnapTransaction(ctx, paymentprovider.SnapRequest{
		TransactionDetails: paymentprovider.TransactionDetails{OrderID: orderID, GrossAmount: s.price(ctx)},
		CreditCard:         &paymentprovider.CreditCard{Secure: true, SaveCard: true},
		CustomerDetails:    paymentprovider.CustomerDetails{FirstName: c.Name, Email: c.Email},
		EnabledPayments:    []string{"credit_card"},
		CustomField1:       userID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Checkout{OrderID: orderID, SnapToken: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// StartRecurring оформляет ежемесячную подписку по токену карты и сразу
// открывает премиум на месяц.
func (s *Service) StartRecurring(ctx context.Context, userID string, c Customer, cardToken string) (*Recurring, error) {
	const op = "services.Subscription.StartRecurring"
	now := s.now()
	amount := s.price(ctx)

	resp, err := s.gateway.CreateSubscription(ctx, paymentprovider.SubscriptionRequest{
		Name:         fmt.Sprintf("MONTHLY_%d", now.In(s.loc).Year()),
		Amount:       amount.String(),
		Currency:     "IDR",
		PaymentType:  "credit_card",
		Token:        cardToken,
		CustomField1: userID,
		Schedule: paymentprovider.Schedule{
			Interval:     1,
			IntervalUnit: "month",
			MaxInterval:  12,
			StartTime:    now.Add(time.Hour).In(s.loc).Format("2006-01-02 15:04:05 -0700"),
		},
		RetrySchedule: paymentprovider.Schedule{Interval: 1, IntervalUnit: "day", MaxInterval: 3},
		Metadata: map[string]string{
			"description": "Patriot Desa Premium Subscription",
			"user_id":     userID,
		},
		CustomerDetails: paymentprovider.CustomerDetails{FirstName: c.Name, Email: c.Email},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expiry := now.AddDate(0, 1, 0)
	paid, _ := amount.Float64()
	if err := s.repo.ApplySubscriptionChange(ctx, models.SubscriptionChange{
		UserID:        userID,
		Status:        models.StatusPremium,
		Expiry:        &expiry,
		AmountPaid:    &paid,
		LastPaymentID: resp.ID,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.activity.Log(ctx, userID, "Subscription started", "Recurring subscription "+resp.ID, models.ActivitySubscription)
	event := models.SubscriptionEvent{UserID: userID, Email: c.Email, Name: c.Name, Status: models.StatusPremium, Expiry: &expiry}
	if err := s.publish(ctx, rabbitmq.RoutingActivated, event); err != nil {
		s.log.Error("failed to publish activation event", slog.String("op", op), sl.Err(err))
	}

	return &Recurring{SubscriptionID: resp.ID, SubscriptionName: resp.Name, Status: resp.Status, Expiry: expiry}, nil
}

// CreateToken создает Snap-токен для заказа клиента и сохраняет его в профиле.
func (s *Service) CreateToken(ctx context.Context, userID, orderID string, grossAmount json.Number, c Customer) (string, error) {
	const op = "services.Subscription.CreateToken"
	resp, err := s.gateway.CreateSnapTransaction(ctx, paymentprovider.SnapRequest{
		TransactionDetails: paymentprovider.TransactionDetails{OrderID: orderID, GrossAmount: grossAmount},
		CustomerDetails:    paymentprovider.CustomerDetails{FirstName: c.Name, Email: c.Email},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.SetPaymentToken(ctx, userID, resp.Token); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.Token, nil
}

// publish отправляет событие, только если письма включены в настройках.
func (s *Service) publish(ctx context.Context, routingKey string, event models.SubscriptionEvent) error {
	if !s.settings.Current(ctx).EmailNotifications {
		return nil
	}
	return s.publisher.Publish(ctx, routingKey, event)
}

func (s *Service) price(ctx context.Context) json.Number {
	return json.Number(strconv.FormatInt(s.settings.Current(ctx).Price(), 10))
}

// orderID строит номер заказа: <prefix>-<unix millis>-<первые 8 символов id>.
func (s *Service) orderID(prefix, userID string) string {
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, s.now().UnixMilli(), short)
}
