package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// CreateActivity добавляет запись в журнал активности.
func (s *Storage) CreateActivity(ctx context.Context, entry models.ActivityLog) error {
	const op = "storage.CreateActivity"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, action, details, type) VALUES ($1, $2, $3, $4)`,
		entry.UserID, entry.Action, entry.Details, entry.Type)
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// ListActivity возвращает последние записи журнала с именем пользователя.
func (s *Storage) ListActivity(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	const op = "storage.ListActivity"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT a.id, a.user_id::text, COALESCE(p.name, ''), a.action, a.details, a.type, a.created_at
		 FROM activity_logs a
		 LEFT JOIN profiles p ON p.id = a.user_id
		 ORDER BY a.created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.ActivityLog, 0)
	for rows.Next() {
		var a models.ActivityLog
		var userID sql.NullString
		if err := rows.Scan(&a.ID, &userID, &a.UserName, &a.Action, &a.Details, &a.Type, &a.CreatedAt); err != nil {
			return nil, wrapErr(op, err)
		}
		if userID.Valid {
			a.UserID = &userID.String
		}
		result = append(result, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}
