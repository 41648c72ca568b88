// Package models содержит доменные модели сервиса: профиль пользователя,
// чаты, подписки, журнал активности и глобальные настройки.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Роли пользователей.
const (
	RoleAparatur   = "aparatur"
	RolePendamping = "pendamping"
	RoleBumdes     = "bumdes"
	RoleUmum       = "umum"
	RoleAdmin      = "admin"
)

// Статусы подписки в профиле.
const (
	StatusFree    = "free"
	StatusPremium = "premium"
)

// Profile представляет зарегистрированного пользователя и его состояние подписки.
type Profile struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Name               string     `json:"name"`
	Role               *string    `json:"role"`
	PhoneNumber        string     `json:"phone_number"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry"`
	LastPaymentID      string     `json:"last_payment_id,omitempty"`
	PaymentToken       string     `json:"payment_token,omitempty"`
	UsageCount         int        `json:"usage_count"`
	DailyUsageResetAt  time.Time  `json:"daily_usage_reset_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// RoleName возвращает роль или пустую строку, если роль еще не выбрана.
func (p *Profile) RoleName() string {
	if p.Role == nil {
		return ""
	}
	return *p.Role
}

// PremiumExpired сообщает, что премиум уже истек, но профиль еще не понижен.
func (p *Profile) PremiumExpired(now time.Time) bool {
	return p.SubscriptionStatus == StatusPremium &&
		p.SubscriptionExpiry != nil &&
		p.SubscriptionExpiry.Before(now)
}

// EffectiveStatus вычисляет статус на момент now: истекший премиум считается бесплатным.
func (p *Profile) EffectiveStatus(now time.Time) string {
	if p.SubscriptionStatus != StatusPremium || p.PremiumExpired(now) {
		return StatusFree
	}
	return StatusPremium
}

// NeedsDailyReset сообщает, что счетчик использования пора обнулить.
func (p *Profile) NeedsDailyReset(now time.Time) bool {
	return now.After(p.DailyUsageResetAt)
}

// NextMidnight возвращает ближайшую полночь после t в часовом поясе loc.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// SelectableRole проверяет, что роль может выбрать сам пользователь.
func SelectableRole(role string) bool {
	switch role {
	case RoleAparatur, RolePendamping, RoleBumdes, RoleUmum:
		return true
	}
	return false
}

// ProfileUpdate поля, которые пользователь меняет в своем профиле.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=aparatur pendamping bumdes umum"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=20"`
}

// UserUpdate поля профиля, которые может менять администратор.
type UserUpdate struct {
	Name               *string    `json:"name,omitempty" validate:"omitempty,max=100"`
	Role               *string    `json:"role,omitempty" validate:"omitempty,oneof=aparatur pendamping bumdes umum admin"`
	PhoneNumber        *string    `json:"phone_number,omitempty" validate:"omitempty,max=20"`
	SubscriptionStatus *string    `json:"subscription_status,omitempty" validate:"omitempty,oneof=free premium"`
	SubscriptionExpiry *time.Time `json:"subscription_expiry,omitempty"`
	UsageCount         *int       `json:"usage_count,omitempty" validate:"omitempty,min=0"`
}
