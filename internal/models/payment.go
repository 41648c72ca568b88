package models

import "encoding/json"

// PaymentEvent запись журнала обработанных уведомлений платежного шлюза.
// EventKey уникален: повторное уведомление с тем же ключом не применяется.
type PaymentEvent struct {
	EventKey          string
	OrderID           string
	TransactionStatus string
	UserID            string
	Payload           json.RawMessage
}
