// Package paymentprovider клиент платежного шлюза Midtrans: Snap-транзакции,
// рекуррентные подписки и проверка подписи уведомлений.
package paymentprovider

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/config"
)

// Client клиент API Midtrans.
type Client struct {
	serverKey  string
	snapURL    string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент Midtrans.
func NewClient(cfg config.Midtrans) *Client {
	return &Client{
		serverKey:  cfg.ServerKey,
		snapURL:    strings.TrimRight(cfg.SnapBaseURL, "/"),
		apiURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.serverKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if !json.Valid(raw) {
			raw, _ = json.Marshal(string(raw))
		}
		return &GatewayError{StatusCode: resp.StatusCode, Body: raw}
	}
	return json.Unmarshal(raw, out)
}

// CreateSnapTransaction создает Snap-транзакцию и возвращает токен страницы оплаты.
func (c *Client) CreateSnapTransaction(ctx context.Context, reqParams SnapRequest) (*SnapResponse, error) {
	const op = "paymentprovider.CreateSnapTransaction"
	req, err := c.newRequest(ctx, http.MethodPost, c.snapURL+"/transactions", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out SnapResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// CreateSubscription создает рекуррентную подписку по токену сохраненной карты.
func (c *Client) CreateSubscription(ctx context.Context, reqParams SubscriptionRequest) (*SubscriptionResponse, error) {
	const op = "paymentprovider.CreateSubscription"
	req, err := c.newRequest(ctx, http.MethodPost, c.apiURL+"/subscriptions", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out SubscriptionResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// GetSubscription читает подписку со стороны шлюза.
func (c *Client) GetSubscription(ctx context.Context, id string) (*SubscriptionResponse, error) {
	const op = "paymentprovider.GetSubscription"
	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL+"/subscriptions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var out SubscriptionResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// Signature считает signature_key уведомления:
// hex(sha512(order_id + status_code + gross_amount + server_key)).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature сверяет подпись уведомления с ключом сервера.
func (c *Client) VerifySignature(n *Notification) bool {
	if n.SignatureKey == "" || c.serverKey == "" {
		return false
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, c.serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) == 1
}
