package models

import "time"

// Типы записей журнала активности.
const (
	ActivityLogin         = "login"
	ActivityQuery         = "query"
	ActivitySubscription  = "subscription"
	ActivityProfileUpdate = "profile_update"
	ActivityAdminAction   = "admin_action"
)

// ActivityLog запись журнала активности.
type ActivityLog struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityType проверяет допустимость типа записи.
func ActivityType(t string) bool {
	switch t {
	case ActivityLogin, ActivityQuery, ActivitySubscription, ActivityProfileUpdate, ActivityAdminAction:
		return true
	}
	return false
}
