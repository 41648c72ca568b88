package repository

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// GetSettings читает глобальные настройки. Если строки нет, возвращает значения по умолчанию.
func (s *Storage) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	const op = "storage.GetSettings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var st models.AppSettings
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT site_name, maintenance_mode, max_free_queries, subscription_price,
		        email_notifications, auto_backup, updated_at
		 FROM app_settings WHERE id = 1`).
		Scan(&st.SiteName, &st.MaintenanceMode, &st.MaxFreeQueries, &st.SubscriptionPrice,
			&st.EmailNotifications, &st.AutoBackup, &st.UpdatedAt)
	if err != nil {
		err = wrapErr(op, err)
		if errors.Is(err, ErrNotFound) {
			def := models.DefaultSettings()
			return &def, nil
		}
		return nil, err
	}
	return &st, nil
}

// UpsertSettings сохраняет глобальные настройки.
func (s *Storage) UpsertSettings(ctx context.Context, st models.AppSettings) (*models.AppSettings, error) {
	const op = "storage.UpsertSettings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var saved models.AppSettings
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO app_settings (id, site_name, maintenance_mode, max_free_queries,
		                           subscription_price, email_notifications, auto_backup, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (id) DO UPDATE SET
		     site_name = EXCLUDED.site_name,
		     maintenance_mode = EXCLUDED.maintenance_mode,
		     max_free_queries = EXCLUDED.max_free_queries,
		     subscription_price = EXCLUDED.subscription_price,
		     email_notifications = EXCLUDED.email_notifications,
		     auto_backup = EXCLUDED.auto_backup,
		     updated_at = now()
		 RETURNING site_name, maintenance_mode, max_free_queries, subscription_price,
		           email_notifications, auto_backup, updated_at`,
		st.SiteName, st.MaintenanceMode, st.MaxFreeQueries, st.SubscriptionPrice,
		st.EmailNotifications, st.AutoBackup).
		Scan(&saved.SiteName, &saved.MaintenanceMode, &saved.MaxFreeQueries, &saved.SubscriptionPrice,
			&saved.EmailNotifications, &saved.AutoBackup, &saved.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &saved, nil
}
