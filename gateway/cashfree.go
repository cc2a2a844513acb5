// Package gateway talks to the Cashfree payment gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"home-services-api/config"
	"home-services-api/metrics"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const PaymentStatusSuccess = "SUCCESS"

// Client is a minimal Cashfree PG client.
type Client struct {
	baseURL        string
	clientID       string
	clientSecret   string
	apiVersion     string
	maxRetries     int
	initialBackoff time.Duration
	httpClient     *http.Client
}

func NewClient(cfg config.CashfreeConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		apiVersion:     cfg.APIVersion,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type OrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type CreateOrderRequest struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   float64         `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
	Customer      CustomerDetails `json:"customer_details"`
	OrderMeta     *OrderMeta      `json:"order_meta,omitempty"`
	OrderNote     string          `json:"order_note,omitempty"`
}

type Order struct {
	CFOrderID        FlexibleID `json:"cf_order_id"`
	OrderID          string     `json:"order_id"`
	OrderAmount      float64    `json:"order_amount"`
	OrderCurrency    string     `json:"order_currency"`
	OrderStatus      string     `json:"order_status"`
	PaymentSessionID string     `json:"payment_session_id"`
}

type Payment struct {
	CFPaymentID    FlexibleID `json:"cf_payment_id"`
	OrderID        string     `json:"order_id"`
	PaymentStatus  string     `json:"payment_status"`
	PaymentAmount  float64    `json:"payment_amount"`
	PaymentTime    string     `json:"payment_time"`
	PaymentMessage string     `json:"payment_message"`
}

// FlexibleID accepts ids the gateway sends either as numbers or strings.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cashfree id: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

// FirstSuccessful returns the first payment in SUCCESS state, if any.
func FirstSuccessful(payments []Payment) (Payment, bool) {
	for _, p := range payments {
		if p.PaymentStatus == PaymentStatusSuccess {
			return p, true
		}
	}
	return Payment{}, false
}

// Error is a gateway failure. Body holds the upstream payload when there was one.
type Error struct {
	Operation  string
	StatusCode int
	Body       []byte
	Message    string
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("cashfree %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("cashfree %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CreateOrder mints a gateway order and payment session. It is sent once:
// a retry after a lost response would collide with the order it created.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var order Order
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", body, &order, 0); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderPayments lists payment attempts for an order.
func (c *Client) GetOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var payments []Payment
	path := "/orders/" + url.PathEscape(orderID) + "/payments"
	if err := c.do(ctx, "get_payments", http.MethodGet, path, nil, &payments, c.maxRetries); err != nil {
		return nil, err
	}
	return payments, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any, retries int) error {
	var lastErr *Error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			zap.L().Warn("retrying gateway call",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return &Error{Operation: op, Retryable: true, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		respBody, err := c.send(ctx, method, path, body)
		if err == nil {
			metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return &Error{Operation: op, Body: respBody, Message: "malformed gateway response", Err: err}
			}
			return nil
		}

		var gwErr *Error
		if !errors.As(err, &gwErr) {
			gwErr = &Error{Retryable: true, Err: err}
		}
		gwErr.Operation = op
		lastErr = gwErr
		if !gwErr.Retryable || ctx.Err() != nil {
			break
		}
	}
	result := "error"
	if lastErr.Retryable {
		result = "unavailable"
	}
	metrics.GatewayRequests.WithLabelValues(op, result).Inc()
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	msg := gjson.GetBytes(respBody, "message").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &Error{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Message:    msg,
		Retryable:  isRetryableStatus(resp.StatusCode),
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.initialBackoff
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	wait := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if wait > 5*time.Second {
		wait = 5 * time.Second
	}
	return wait
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
