package repository

import (
	"context"
	"encoding/json"

	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// InsertPaymentEvent фиксирует уведомление. Возвращает false, если событие
// с таким ключом уже было обработано.
func (s *Storage) InsertPaymentEvent(ctx context.Context, ev models.PaymentEvent) (bool, error) {
	const op = "storage.InsertPaymentEvent"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var userID any
	if ev.UserID != "" {
		userID = ev.UserID
	}
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	res, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO payment_events (event_key, order_id, transaction_status, user_id, payload)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (event_key) DO NOTHING`,
		ev.EventKey, ev.OrderID, ev.TransactionStatus, userID, string(payload))
	if err != nil {
		return false, wrapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(op, err)
	}
	return n == 1, nil
}
