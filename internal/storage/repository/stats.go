package repository

import (
	"context"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// DashboardStats считает сводку по пользователям, вопросам и выручке.
func (s *Storage) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	const op = "storage.DashboardStats"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var st models.DashboardStats
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT
		     (SELECT count(*) FROM profiles),
		     (SELECT count(*) FROM profiles WHERE role = 'aparatur'),
		     (SELECT count(*) FROM profiles WHERE role = 'pendamping'),
		     (SELECT count(*) FROM profiles WHERE role = 'bumdes'),
		     (SELECT count(*) FROM profiles WHERE role = 'umum'),
		     (SELECT count(*) FROM chat_messages WHERE role = 'user'),
		     (SELECT count(*) FROM profiles WHERE subscription_status = 'premium'),
		     (SELECT COALESCE(sum(amount_paid), 0)::float8 FROM subscriptions)`).
		Scan(&st.TotalUsers, &st.Aparatur, &st.Pendamping, &st.Bumdes, &st.Umum,
			&st.TotalQuestions, &st.PremiumUsers, &st.TotalRevenue)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &st, nil
}

// UserGrowth возвращает число регистраций по месяцам за последний год,
// включая месяцы без регистраций.
func (s *Storage) UserGrowth(ctx context.Context) ([]models.GrowthPoint, error) {
	const op = "storage.UserGrowth"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT to_char(m.month, 'Mon YYYY'), count(p.id)
		 FROM generate_series(
		          date_trunc('month', now()) - interval '11 months',
		          date_trunc('month', now()),
		          interval '1 month') AS m(month)
		 LEFT JOIN profiles p ON date_trunc('month', p.created_at) = m.month
		 GROUP BY m.month
		 ORDER BY m.month`)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.GrowthPoint, 0, 12)
	for rows.Next() {
		var g models.GrowthPoint
		if err := rows.Scan(&g.Month, &g.Users); err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, g)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// QueryDistribution группирует вопросы пользователей по категориям.
func (s *Storage) QueryDistribution(ctx context.Context) ([]models.CategoryCount, error) {
	const op = "storage.QueryDistribution"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT COALESCE(category, 'lainnya') AS c, count(*)
		 FROM chat_messages
		 WHERE role = 'user'
		 GROUP BY c
		 ORDER BY count(*) DESC, c`)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.CategoryCount, 0)
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, wrapErr(op, err)
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}
