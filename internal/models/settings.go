package models

import "time"

// Значения по умолчанию для глобальных настроек.
const (
	DefaultMaxFreeQueries    = 5
	DefaultSubscriptionPrice = 99000
)

// AppSettings глобальные настройки приложения, одна строка на всю систему.
type AppSettings struct {
	SiteName           string    `json:"site_name" validate:"required,max=100"`
	MaintenanceMode    bool      `json:"maintenance_mode"`
	MaxFreeQueries     int       `json:"max_free_queries" validate:"min=0"`
	SubscriptionPrice  int64     `json:"subscription_price" validate:"min=0"`
	EmailNotifications bool      `json:"email_notifications"`
	AutoBackup         bool      `json:"auto_backup"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultSettings настройки, действующие до первой записи администратором.
func DefaultSettings() AppSettings {
	return AppSettings{
		SiteName:           "Patriot Desa",
		MaxFreeQueries:     DefaultMaxFreeQueries,
		SubscriptionPrice:  DefaultSubscriptionPrice,
		EmailNotifications: true,
		AutoBackup:         true,
	}
}

// FreeLimit возвращает дневной лимит бесплатного тарифа.
func (s AppSettings) FreeLimit() int {
	if s.MaxFreeQueries <= 0 {
		return DefaultMaxFreeQueries
	}
	return s.MaxFreeQueries
}

// Price возвращает цену подписки в рупиях.
func (s AppSettings) Price() int64 {
	if s.SubscriptionPrice <= 0 {
		return DefaultSubscriptionPrice
	}
	return s.SubscriptionPrice
}
