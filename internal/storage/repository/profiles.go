package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

const profileColumns = `id, email, password_hash, name, role::text, phone_number,
	subscription_status, subscription_expiry, last_payment_id, payment_token,
	usage_count, daily_usage_reset_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var role sql.NullString
	var expiry sql.NullTime
	if err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Name, &role, &p.PhoneNumber,
		&p.SubscriptionStatus, &expiry, &p.LastPaymentID, &p.PaymentToken,
		&p.UsageCount, &p.DailyUsageResetAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if role.Valid {
		p.Role = &role.String
	}
	if expiry.Valid {
		t := expiry.Time
		p.SubscriptionExpiry = &t
	}
	return &p, nil
}

// CreateProfile сохраняет профиль и его бесплатную строку подписки, возвращает ID.
func (s *Storage) CreateProfile(ctx context.Context, p models.Profile) (string, error) {
	const op = "storage.CreateProfile"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var id string
	err := s.Atomic(ctx, func(ctx context.Context) error {
		query := `INSERT INTO profiles (email, password_hash, name, role, daily_usage_reset_at)
				  VALUES ($1, $2, $3, $4::app_role, $5)
				  RETURNING id`
		if err := s.conn(ctx).QueryRowContext(ctx, query,
			p.Email, p.PasswordHash, p.Name, p.Role, p.DailyUsageResetAt).Scan(&id); err != nil {
			return wrapErr(op, err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx,
			`INSERT INTO subscriptions (user_id, plan) VALUES ($1, 'free')`, id); err != nil {
			return wrapErr(op, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetProfileByEmail возвращает профиль по почте.
func (s *Storage) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	const op = "storage.GetProfileByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// GetProfile возвращает профиль по ID.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// GetProfileForUpdate читает профиль с блокировкой строки до конца транзакции.
// Вызывается только внутри Atomic.
func (s *Storage) GetProfileForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfileForUpdate"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// SetUsage записывает счетчик использования и момент следующего сброса.
func (s *Storage) SetUsage(ctx context.Context, userID string, count int, resetAt time.Time) error {
	const op = "storage.SetUsage"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE profiles SET usage_count = $2, daily_usage_reset_at = $3, updated_at = now()
		 WHERE id = $1`, userID, count, resetAt)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// DecrementUsage уменьшает счетчик, не опуская его ниже нуля.
func (s *Storage) DecrementUsage(ctx context.Context, userID string) error {
	const op = "storage.DecrementUsage"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE profiles SET usage_count = GREATEST(usage_count - 1, 0), updated_at = now()
		 WHERE id = $1`, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// ResetUsage обнуляет счетчик использования.
func (s *Storage) ResetUsage(ctx context.Context, userID string) error {
	const op = "storage.ResetUsage"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE profiles SET usage_count = 0, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// ApplySubscriptionChange меняет статус и срок в профиле и план в строке подписки.
// Вызывающая сторона оборачивает вызов в Atomic, если изменение должно быть атомарным
// вместе с другими записями.
func (s *Storage) ApplySubscriptionChange(ctx context.Context, change models.SubscriptionChange) error {
	const op = "storage.ApplySubscriptionChange"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	return s.Atomic(ctx, func(ctx context.Context) error {
		res, err := s.conn(ctx).ExecContext(ctx,
			`UPDATE profiles
			 SET subscription_status = $2,
			     subscription_expiry = $3,
			     last_payment_id = CASE WHEN $4::text = '' THEN last_payment_id ELSE $4::text END,
			     updated_at = now()
			 WHERE id = $1`,
			change.UserID, change.Status, change.Expiry, change.LastPaymentID)
		if err != nil {
			return wrapErr(op, err)
		}
		if err := expectAffected(op, res); err != nil {
			return err
		}

		_, err = s.conn(ctx).ExecContext(ctx,
			`INSERT INTO subscriptions (user_id, plan, start_date, end_date, amount_paid)
			 VALUES ($1, $2, now(), $3, COALESCE($4::numeric, 0))
			 ON CONFLICT (user_id) DO UPDATE
			 SET plan = EXCLUDED.plan,
			     end_date = EXCLUDED.end_date,
			     start_date = CASE WHEN EXCLUDED.plan = 'premium' AND subscriptions.plan <> 'premium'
			                       THEN now() ELSE subscriptions.start_date END,
			     amount_paid = COALESCE($4::numeric, subscriptions.amount_paid)`,
			change.UserID, change.Status, change.Expiry, change.AmountPaid)
		if err != nil {
			return wrapErr(op, err)
		}
		return nil
	})
}

// SetLastPaymentID сохраняет идентификатор последнего платежа.
func (s *Storage) SetLastPaymentID(ctx context.Context, userID, paymentID string) error {
	const op = "storage.SetLastPaymentID"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE profiles SET last_payment_id = $2, updated_at = now() WHERE id = $1`, userID, paymentID)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// SetPaymentToken сохраняет последний Snap-токен пользователя.
func (s *Storage) SetPaymentToken(ctx context.Context, userID, token string) error {
	const op = "storage.SetPaymentToken"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE profiles SET payment_token = $2, updated_at = now() WHERE id = $1`, userID, token)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

// DowngradeExpired переводит все истекшие премиум-профили на бесплатный тариф
// и возвращает затронутые профили.
func (s *Storage) DowngradeExpired(ctx context.Context, now time.Time) ([]*models.Profile, error) {
	const op = "storage.DowngradeExpired"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var result []*models.Profile
	err := s.Atomic(ctx, func(ctx context.Context) error {
		rows, err := s.conn(ctx).QueryContext(ctx,
			`UPDATE profiles
			 SET subscription_status = 'free', subscription_expiry = NULL, updated_at = now()
			 WHERE subscription_status = 'premium' AND subscription_expiry < $1
			 RETURNING `+profileColumns, now)
		if err != nil {
			return wrapErr(op, err)
		}
		defer func() {
			_ = rows.Close()
		}()
		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return wrapErr(op, err)
			}
			result = append(result, p)
		}
		if err := rows.Err(); err != nil {
			return wrapErr(op, err)
		}
		_ = rows.Close()

		if len(result) == 0 {
			return nil
		}
		ids := make([]string, 0, len(result))
		for _, p := range result {
			ids = append(ids, p.ID)
		}
		if _, err := s.conn(ctx).ExecContext(ctx,
			`UPDATE subscriptions SET plan = 'free', end_date = NULL
			 WHERE user_id::text = ANY($1::text[])`, ids); err != nil {
			return wrapErr(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateProfile обновляет поля, которые меняет сам пользователь.
func (s *Storage) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	const op = "storage.UpdateProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx,
		`UPDATE profiles
		 SET name = COALESCE($2, name),
		     role = COALESCE($3::app_role, role),
		     phone_number = COALESCE($4, phone_number),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		userID, upd.Name, upd.Role, upd.PhoneNumber)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// AdminUpdateProfile обновляет профиль по запросу администратора.
func (s *Storage) AdminUpdateProfile(ctx context.Context, userID string, upd models.UserUpdate) (*models.Profile, error) {
	const op = "storage.AdminUpdateProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = now()"}
	args := []any{userID}
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if upd.Name != nil {
		add("name = $%d", *upd.Name)
	}
	if upd.Role != nil {
		add("role = $%d::app_role", *upd.Role)
	}
	if upd.PhoneNumber != nil {
		add("phone_number = $%d", *upd.PhoneNumber)
	}
	if upd.SubscriptionStatus != nil {
		add("subscription_status = $%d", *upd.SubscriptionStatus)
	}
	if upd.SubscriptionExpiry != nil {
		add("subscription_expiry = $%d", *upd.SubscriptionExpiry)
	}
	if upd.UsageCount != nil {
		add("usage_count = $%d", *upd.UsageCount)
	}

	row := s.conn(ctx).QueryRowContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+profileColumns,
		args...)
	p, err := scanProfile(row)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// ListProfiles возвращает все профили, новые первыми.
func (s *Storage) ListProfiles(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	const op = "storage.ListProfiles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// DeleteProfile удаляет профиль вместе с чатами и подпиской.
func (s *Storage) DeleteProfile(ctx context.Context, userID string) error {
	const op = "storage.DeleteProfile"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return wrapErr(op, err)
	}
	return expectAffected(op, res)
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
