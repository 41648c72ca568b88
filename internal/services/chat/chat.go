// Package services содержит логику чатов: беседы пользователя, сообщения,
// повторную отправку и подготовку истории для запроса к модели.
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/patriot-desa/internal/completion"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// ErrInvalidRole роль сообщения не user и не assistant.
var ErrInvalidRole = errors.New("invalid message role")

// ErrEmptyMessage текст сообщения пуст.
var ErrEmptyMessage = errors.New("message is empty")

// Repository хранилище чатов и сообщений.
type Repository interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	ListChats(ctx context.Context, userID string) ([]*models.Chat, error)
	CreateChat(ctx context.Context, userID, title string) (*models.Chat, error)
	GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error)
	RenameChat(ctx context.Context, userID, chatID, title string) (*models.Chat, error)
	DeleteChat(ctx context.Context, userID, chatID string) error
	ListMessages(ctx context.Context, chatID string) ([]*models.ChatMessage, error)
	CreateMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error)
	GetMessage(ctx context.Context, chatID, messageID string) (*models.ChatMessage, error)
	UpdateMessage(ctx context.Context, chatID, messageID, text string) (*models.ChatMessage, error)
	DeleteMessagesAfter(ctx context.Context, chatID, messageID string) (int64, error)
}

// Service реализует операции над чатами.
type Service struct {
	repo   Repository
	policy *bluemonday.Policy
	log    *slog.Logger
}

// NewService создает сервис чатов.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: bluemonday.StrictPolicy(),
		log:    log,
	}
}

// List возвращает чаты пользователя.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Chat, error) {
	const op = "services.Chat.List"
	chats, err := s.repo.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

// Create создает чат. Пустой заголовок заменяется на "New Chat".
func (s *Service) Create(ctx context.Context, userID, title string) (*models.Chat, error) {
	const op = "services.Chat.Create"
	title = s.title(title)
	if title == "" {
		title = models.DefaultChatTitle
	}
	chat, err := s.repo.CreateChat(ctx, userID, title)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

// Rename меняет заголовок чата.
func (s *Service) Rename(ctx context.Context, userID, chatID, title string) (*models.Chat, error) {
	const op = "services.Chat.Rename"
	title = s.title(title)
	if title == "" {
		title = models.DefaultChatTitle
	}
	chat, err := s.repo.RenameChat(ctx, userID, chatID, title)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}

// Delete удаляет чат вместе с сообщениями.
func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	const op = "services.Chat.Delete"
	if err := s.repo.DeleteChat(ctx, userID, chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Messages возвращает сообщения чата пользователя.
func (s *Service) Messages(ctx context.Context, userID, chatID string) ([]*models.ChatMessage, error) {
	const op = "services.Chat.Messages"
	if _, err := s.repo.GetChat(ctx, userID, chatID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msgs, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// AddMessage сохраняет сообщение в чате пользователя.
func (s *Service) AddMessage(ctx context.Context, userID string, msg models.ChatMessage) (*models.ChatMessage, error) {
	const op = "services.Chat.AddMessage"
	if msg.Role != models.MessageRoleUser && msg.Role != models.MessageRoleAssistant {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}
	if strings.TrimSpace(msg.Message) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}
	if _, err := s.repo.GetChat(ctx, userID, msg.ChatID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.repo.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// EditMessage заменяет текст сообщения.
func (s *Service) EditMessage(ctx context.Context, userID, chatID, messageID, text string) (*models.ChatMessage, error) {
	const op = "services.Chat.EditMessage"
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}
	if _, err := s.repo.GetChat(ctx, userID, chatID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msg, err := s.repo.UpdateMessage(ctx, chatID, messageID, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// Resend переписывает сообщение и удаляет все, что было после него.
// Возвращает оставшуюся переписку.
func (s *Service) Resend(ctx context.Context, userID, chatID, messageID, text string) ([]*models.ChatMessage, error) {
	const op = "services.Chat.Resend"
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}

	var transcript []*models.ChatMessage
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetChat(ctx, userID, chatID); err != nil {
			return err
		}
		if _, err := s.repo.GetMessage(ctx, chatID, messageID); err != nil {
			return err
		}
		removed, err := s.repo.DeleteMessagesAfter(ctx, chatID, messageID)
		if err != nil {
			return err
		}
		if _, err := s.repo.UpdateMessage(ctx, chatID, messageID, text); err != nil {
			return err
		}
		s.log.Debug("messages trimmed for resend", slog.String("chat_id", chatID), slog.Int64("removed", removed))
		transcript, err = s.repo.ListMessages(ctx, chatID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return transcript, nil
}

// PrepareSend готовит серверную отправку: при пустом chatID создает чат с
// заголовком из сообщения, сохраняет сообщение пользователя и возвращает
// историю чата для модели.
func (s *Service) PrepareSend(ctx context.Context, userID, chatID, text string, category *string) (*models.Chat, []completion.Message, error) {
	const op = "services.Chat.PrepareSend"
	if strings.TrimSpace(text) == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmptyMessage)
	}

	var (
		chat    *models.Chat
		history []*models.ChatMessage
	)
	err := s.repo.Atomic(ctx, func(ctx context.Context) error {
		var err error
		if chatID == "" {
			chat, err = s.repo.CreateChat(ctx, userID, models.ChatTitle(s.title(text)))
		} else {
			chat, err = s.repo.GetChat(ctx, userID, chatID)
		}
		if err != nil {
			return err
		}
		if _, err = s.repo.CreateMessage(ctx, models.ChatMessage{
			ChatID:   chat.ID,
			Role:     models.MessageRoleUser,
			Message:  text,
			Category: category,
		}); err != nil {
			return err
		}
		history, err = s.repo.ListMessages(ctx, chat.ID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	messages := make([]completion.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, completion.Message{Role: m.Role, Content: m.Message})
	}
	return chat, messages, nil
}

// SaveReply сохраняет ответ ассистента. Пустой ответ не сохраняется.
func (s *Service) SaveReply(ctx context.Context, chatID, text string) (*models.ChatMessage, error) {
	const op = "services.Chat.SaveReply"
	if text == "" {
		return nil, nil
	}
	msg, err := s.repo.CreateMessage(ctx, models.ChatMessage{
		ChatID:  chatID,
		Role:    models.MessageRoleAssistant,
		Message: text,
	})
	if err != nil {
		s.log.Error("failed to save assistant reply", slog.String("op", op), slog.String("chat_id", chatID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// title убирает разметку. Sanitize экранирует текст, поэтому сущности
// возвращаются к исходным символам.
func (s *Service) title(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
