package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// ListChats возвращает чаты пользователя, последние обновленные первыми.
func (s *Storage) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	const op = "storage.ListChats"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chats WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Chat, 0)
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// CreateChat создает чат пользователя.
func (s *Storage) CreateChat(ctx context.Context, userID, title string) (*models.Chat, error) {
	const op = "storage.CreateChat"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var c models.Chat
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO chats (user_id, title) VALUES ($1, $2)
		 RETURNING id, user_id, title, created_at, updated_at`, userID, title).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &c, nil
}

// GetChat возвращает чат, если он принадлежит пользователю.
func (s *Storage) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	const op = "storage.GetChat"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var c models.Chat
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &c, nil
}

// RenameChat меняет заголовок чата пользователя.
func (s *Storage) RenameChat(ctx context.Context, userID, chatID, title string) (*models.Chat, error) {
	const op = "storage.RenameChat"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var c models.Chat
	err := s.conn(ctx).QueryRowContext(ctx,
		`UPDATE chats SET title = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, title, created_at, updated_at`, chatID, userID, title).
		Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &c, nil
}

// DeleteChat удаляет чат пользователя вместе с сообщениями.
func (s *Storage) DeleteChat(ctx context.Context, userID, chatID string) error {
	const op = "storage.DeleteChat"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// ListMessages возвращает сообщения чата в хронологическом порядке.
func (s *Storage) ListMessages(ctx context.Context, chatID string) ([]*models.ChatMessage, error) {
	const op = "storage.ListMessages"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, chat_id, role, message, category, created_at
		 FROM chat_messages WHERE chat_id = $1 ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.ChatMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// CreateMessage сохраняет сообщение и обновляет updated_at чата.
func (s *Storage) CreateMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	const op = "storage.CreateMessage"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var created *models.ChatMessage
	err := s.Atomic(ctx, func(ctx context.Context) error {
		row := s.conn(ctx).QueryRowContext(ctx,
			`INSERT INTO chat_messages (chat_id, role, message, category)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, chat_id, role, message, category, created_at`,
			msg.ChatID, msg.Role, msg.Message, msg.Category)
		m, err := scanMessage(row)
		if err != nil {
			return wrapErr(op, err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx,
			`UPDATE chats SET updated_at = now() WHERE id = $1`, msg.ChatID); err != nil {
			return wrapErr(op, err)
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetMessage возвращает сообщение чата.
func (s *Storage) GetMessage(ctx context.Context, chatID, messageID string) (*models.ChatMessage, error) {
	const op = "storage.GetMessage"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, chat_id, role, message, category, created_at
		 FROM chat_messages WHERE id = $1 AND chat_id = $2`, messageID, chatID)
	m, err := scanMessage(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return m, nil
}

// UpdateMessage заменяет текст сообщения.
func (s *Storage) UpdateMessage(ctx context.Context, chatID, messageID, text string) (*models.ChatMessage, error) {
	const op = "storage.UpdateMessage"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`UPDATE chat_messages SET message = $3
		 WHERE id = $1 AND chat_id = $2
		 RETURNING id, chat_id, role, message, category, created_at`, messageID, chatID, text)
	m, err := scanMessage(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return m, nil
}

// DeleteMessagesAfter удаляет сообщения чата, созданные после указанного.
func (s *Storage) DeleteMessagesAfter(ctx context.Context, chatID, messageID string) (int64, error) {
	const op = "storage.DeleteMessagesAfter"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`DELETE FROM chat_messages
		 WHERE chat_id = $1
		   AND created_at > (SELECT created_at FROM chat_messages WHERE id = $2 AND chat_id = $1)`,
		chatID, messageID)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(op, err)
	}
	return n, nil
}

func scanMessage(row rowScanner) (*models.ChatMessage, error) {
	var m models.ChatMessage
	var category sql.NullString
	if err := row.Scan(&m.ID, &m.ChatID, &m.Role, &m.Message, &category, &m.CreatedAt); err != nil {
		return nil, err
	}
	if category.Valid {
		m.Category = &category.String
	}
	return &m, nil
}
