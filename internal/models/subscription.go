package models

import "time"

// Subscription строка тарифа пользователя, один к одному с профилем.
type Subscription struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Plan       string     `json:"plan"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	AmountPaid float64    `json:"amount_paid"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SubscriptionCheck результат проверки статуса подписки.
type SubscriptionCheck struct {
	Status  string     `json:"status"`
	Expiry  *time.Time `json:"expiry,omitempty"`
	Expired bool       `json:"expired"`
	Message string     `json:"message,omitempty"`
}

// SubscriptionChange изменение тарифа, которое применяется к профилю и строке подписки одной транзакцией.
type SubscriptionChange struct {
	UserID        string
	Status        string
	Expiry        *time.Time
	AmountPaid    *float64
	LastPaymentID string
}

// SubscriptionEvent сообщение в брокер об изменении тарифа.
type SubscriptionEvent struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// UsageState состояние лимита пользователя.
type UsageState struct {
	UsageCount         int        `json:"usage_count"`
	Limit              int        `json:"limit"`
	Remaining          int        `json:"remaining"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
	ResetAt            time.Time  `json:"reset_at"`
	State              string     `json:"state"`
}

// Состояния лимита.
const (
	StateFreeUnderQuota = "free-under-quota"
	StateFreeOverQuota  = "free-over-quota"
	StatePremiumActive  = "premium-active"
	StatePremiumExpired = "premium-expired"
)
