package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultChatTitle название нового чата без явного заголовка.
const DefaultChatTitle = "New Chat"

// Роли сообщений в чате.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Chat беседа пользователя с ассистентом.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage одно сообщение беседы.
type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Category  *string   `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatTitle строит заголовок чата из первого сообщения:
// до 50 символов остается как есть, иначе 47 символов и "...".
func ChatTitle(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return DefaultChatTitle
	}
	if utf8.RuneCountInString(trimmed) <= 50 {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:47]) + "..."
}
