package paymentprovider

import (
	"encoding/json"
	"fmt"
)

// TransactionDetails номер заказа и сумма в рупиях.
type TransactionDetails struct {
	OrderID     string      `json:"order_id"`
	GrossAmount json.Number `json:"gross_amount"`
}

// CreditCard параметры оплаты картой.
type CreditCard struct {
	Secure   bool `json:"secure"`
	SaveCard bool `json:"save_card,omitempty"`
}

// CustomerDetails данные покупателя.
type CustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

// SnapRequest запрос на создание Snap-транзакции.
type SnapRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CreditCard         *CreditCard        `json:"credit_card,omitempty"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	EnabledPayments    []string           `json:"enabled_payments,omitempty"`
	CustomField1       string             `json:"custom_field1,omitempty"`
}

// SnapResponse токен и адрес страницы оплаты.
type SnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Schedule расписание списаний.
type Schedule struct {
	Interval     int    `json:"interval"`
	IntervalUnit string `json:"interval_unit"`
	MaxInterval  int    `json:"max_interval"`
	StartTime    string `json:"start_time,omitempty"`
}

// SubscriptionRequest запрос на создание рекуррентной подписки.
type SubscriptionRequest struct {
	Name            string            `json:"name"`
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentType     string            `json:"payment_type"`
	Token           string            `json:"token"`
	CustomField1    string            `json:"custom_field1,omitempty"`
	Schedule        Schedule          `json:"schedule"`
	RetrySchedule   Schedule          `json:"retry_schedule"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
}

// SubscriptionResponse подписка на стороне шлюза.
type SubscriptionResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Amount       string         `json:"amount"`
	Status       string         `json:"status"`
	Token        string         `json:"token"`
	CustomField1 string         `json:"custom_field1"`
	Metadata     map[string]any `json:"metadata"`
}

// UserID владелец подписки, записанный при ее создании.
func (s *SubscriptionResponse) UserID() string {
	if s.CustomField1 != "" {
		return s.CustomField1
	}
	id, _ := s.Metadata["user_id"].(string)
	return id
}

// Notification уведомление шлюза о транзакции или подписке.
type Notification struct {
	TransactionStatus string         `json:"transaction_status"`
	OrderID           string         `json:"order_id"`
	TransactionID     string         `json:"transaction_id"`
	StatusCode        string         `json:"status_code"`
	GrossAmount       string         `json:"gross_amount"`
	SignatureKey      string         `json:"signature_key"`
	SubscriptionID    string         `json:"subscription_id"`
	Status            string         `json:"status"`
	CustomField1      string         `json:"custom_field1"`
	Metadata          map[string]any `json:"metadata"`
}

// UserID идентификатор пользователя из custom_field1 или metadata.user_id.
func (n *Notification) UserID() string {
	if n.CustomField1 != "" {
		return n.CustomField1
	}
	id, _ := n.Metadata["user_id"].(string)
	return id
}

// IsSubscription уведомление о рекуррентной подписке, а не о транзакции.
func (n *Notification) IsSubscription() bool {
	return n.TransactionStatus == "" && n.SubscriptionID != ""
}

// GatewayError ответ шлюза с кодом не 2xx.
type GatewayError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("midtrans: unexpected status %d: %s", e.StatusCode, string(e.Body))
}
