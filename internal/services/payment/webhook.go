// Package services обрабатывает уведомления платежного шлюза Midtrans
// и переводит их в изменения тарифа пользователя.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/metrics"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
	"github.com/magabrotheeeer/patriot-desa/internal/paymentprovider"
	"github.com/magabrotheeeer/patriot-desa/internal/rabbitmq"
	"github.com/magabrotheeeer/patriot-desa/internal/storage/repository"
)

var (
	// ErrInvalidPayload тело уведомления не разобрано.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrMissingUserID в уведомлении нет идентификатора пользователя.
	ErrMissingUserID = errors.New("missing user_id")
	// ErrUnknownUser пользователь из уведомления не найден.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidSignature подпись уведомления не совпала.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Outcome исход обработки уведомления.
type Outcome string

// Исходы обработки.
const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

const (
	prefixOneTime   = "ONETIME-"
	prefixFirstPay  = "FIRST-PAY"
	oneTimeDuration = 30 * 24 * time.Hour
)

// Repository операции, выполняемые в транзакции уведомления.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	InsertPaymentEvent(ctx context.Context, ev models.PaymentEvent) (bool, error)
	ApplySubscriptionChange(ctx context.Context, change models.SubscriptionChange) error
	SetLastPaymentID(ctx context.Context, userID, paymentID string) error
}

// Gateway проверка подлинности уведомлений.
type Gateway interface {
	VerifySignature(n *paymentprovider.Notification) bool
	GetSubscription(ctx context.Context, id string) (*paymentprovider.SubscriptionResponse, error)
}

// Publisher публикует события о подписке.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Activity журнал активности.
type Activity interface {
	Log(ctx context.Context, userID, action, details, typ string)
}

// Settings источник флага почтовых уведомлений.
type Settings interface {
	Current(ctx context.Context) models.AppSettings
}

// Service обрабатывает уведомления.
type Service struct {
	repo          Repository
	gateway       Gateway
	publisher     Publisher
	activity      Activity
	settings      Settings
	skipSignature bool
	now           func() time.Time
	log           *slog.Logger
}

// NewService создает обработчик уведомлений. skipSignature отключает
// проверку подписи и сверку подписки со шлюзом.
func NewService(repo Repository, gateway Gateway, publisher Publisher, activity Activity,
	settings Settings, skipSignature bool, log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		gateway:       gateway,
		publisher:     publisher,
		activity:      activity,
		settings:      settings,
		skipSignature: skipSignature,
		now:           time.Now,
		log:           log,
	}
}

// plan решение по уведомлению.
type plan struct {
	change      *models.SubscriptionChange
	paymentOnly string
}

// HandleMidtrans обрабатывает уведомление о транзакции или рекуррентной подписке.
func (s *Service) HandleMidtrans(ctx context.Context, raw []byte) (Outcome, error) {
	const op = "services.Payment.HandleMidtrans"
	n, profile, err := s.authenticate(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	status := n.TransactionStatus
	if n.IsSubscription() {
		status = n.Status
		if !s.skipSignature {
			sub, err := s.gateway.GetSubscription(ctx, n.SubscriptionID)
			if err != nil {
				return "", fmt.Errorf("%s: confirm subscription: %w", op, err)
			}
			// подписка должна принадлежать пользователю из уведомления
			if sub.UserID() != n.UserID() {
				return "", fmt.Errorf("%s: subscription %s owner mismatch: %w", op, n.SubscriptionID, ErrInvalidSignature)
			}
			status = sub.Status
		}
	}

	p := s.planMidtrans(n, status)
	return s.apply(ctx, op, n, status, profile, raw, p)
}

// HandlePayment обрабатывает уведомление о разовой оплате: премиум на 30 дней
// только для заказов ONETIME в статусе settlement.
func (s *Service) HandlePayment(ctx context.Context, raw []byte) (Outcome, error) {
	const op = "services.Payment.HandlePayment"
	n, profile, err := s.authenticate(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var p plan
	if n.TransactionStatus == "settlement" && strings.HasPrefix(n.OrderID, prefixOneTime) {
		p.change = s.premium(n, n.OrderID, s.now().Add(oneTimeDuration))
	}
	return s.apply(ctx, op, n, n.TransactionStatus, profile, raw, p)
}

func (s *Service) authenticate(ctx context.Context, raw []byte) (*paymentprovider.Notification, *models.Profile, error) {
	var n paymentprovider.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	userID := n.UserID()
	if userID == "" {
		return nil, nil, ErrMissingUserID
	}
	if !n.IsSubscription() && !s.skipSignature && !s.gateway.VerifySignature(&n) {
		return nil, nil, ErrInvalidSignature
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil, ErrUnknownUser
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownUser, err)
	}
	if err != nil {
		return nil, nil, err
	}
	return &n, profile, nil
}

func (s *Service) planMidtrans(n *paymentprovider.Notification, status string) plan {
	now := s.now()
	if n.IsSubscription() {
		switch status {
		case "active":
			return plan{change: s.premium(n, n.SubscriptionID, now.AddDate(0, 1, 0))}
		case "expired", "cancelled":
			return plan{change: &models.SubscriptionChange{
				UserID:        n.UserID(),
				Status:        models.StatusFree,
				LastPaymentID: n.SubscriptionID,
			}}
		default:
			return plan{paymentOnly: n.SubscriptionID}
		}
	}

	if status != "settlement" && status != "capture" {
		return plan{}
	}
	switch {
	case strings.HasPrefix(n.OrderID, prefixFirstPay):
		return plan{paymentOnly: n.OrderID}
	case strings.HasPrefix(n.OrderID, prefixOneTime):
		return plan{change: s.premium(n, n.OrderID, now.Add(oneTimeDuration))}
	default:
		return plan{change: s.premium(n, n.OrderID, now.AddDate(0, 1, 0))}
	}
}

func (s *Service) premium(n *paymentprovider.Notification, paymentID string, expiry time.Time) *models.SubscriptionChange {
	amount := float64(models.DefaultSubscriptionPrice)
	if v, err := strconv.ParseFloat(n.GrossAmount, 64); err == nil && v > 0 {
		amount = v
	}
	return &models.SubscriptionChange{
		UserID:        n.UserID(),
		Status:        models.StatusPremium,
		Expiry:        &expiry,
		AmountPaid:    &amount,
		LastPaymentID: paymentID,
	}
}

// apply фиксирует событие и изменение тарифа в одной транзакции.
// Повтор уже записанного события ничего не меняет.
func (s *Service) apply(ctx context.Context, op string, n *paymentprovider.Notification, status string,
	profile *models.Profile, raw []byte, p plan) (Outcome, error) {
	log := s.log.With(slog.String("op", op), sl.UserID(profile.ID),
		slog.String("order_id", n.OrderID), slog.String("status", status))

	outcome := OutcomeIgnored
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		inserted, err := s.repo.InsertPaymentEvent(ctx, models.PaymentEvent{
			EventKey:          eventKey(n, status),
			OrderID:           n.OrderID,
			TransactionStatus: status,
			UserID:            profile.ID,
			Payload:           raw,
		})
		if err != nil {
			return err
		}
		if !inserted {
			outcome = OutcomeDuplicate
			return nil
		}
		switch {
		case p.change != nil:
			if err := s.repo.ApplySubscriptionChange(ctx, *p.change); err != nil {
				return err
			}
			outcome = OutcomeApplied
		case p.paymentOnly != "":
			if err := s.repo.SetLastPaymentID(ctx, profile.ID, p.paymentOnly); err != nil {
				return err
			}
			outcome = OutcomeApplied
		}
		return nil
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		log.Error("failed to apply notification", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	log.Info("notification processed", slog.String("outcome", string(outcome)))

	if outcome == OutcomeApplied && p.change != nil {
		s.notify(ctx, log, profile, p.change)
	}
	return outcome, nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, profile *models.Profile, change *models.SubscriptionChange) {
	if change.Status == models.StatusPremium {
		s.activity.Log(ctx, profile.ID, "Subscription activated", "Payment "+change.LastPaymentID, models.ActivitySubscription)
		if !s.settings.Current(ctx).EmailNotifications {
			return
		}
		event := models.SubscriptionEvent{
			UserID: profile.ID,
			Email:  profile.Email,
			Name:   profile.Name,
			Status: models.StatusPremium,
			Expiry: change.Expiry,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingActivated, event); err != nil {
			log.Error("failed to publish activation event", sl.Err(err))
		}
		return
	}
	s.activity.Log(ctx, profile.ID, "Subscription ended", "Subscription "+change.LastPaymentID, models.ActivitySubscription)
}

// eventKey ключ идемпотентности. Одна транзакция проходит несколько статусов
// (pending, settlement), поэтому статус входит в ключ.
func eventKey(n *paymentprovider.Notification, status string) string {
	switch {
	case n.TransactionID != "":
		return n.TransactionID + ":" + status
	case n.IsSubscription():
		return n.SubscriptionID + ":" + status
	default:
		return n.OrderID + ":" + status
	}
}
