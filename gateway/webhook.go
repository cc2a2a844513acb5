package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/tidwall/gjson"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Sign computes base64(HMAC-SHA256(timestamp + body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the x-webhook-signature header against the raw body.
func VerifyWebhookSignature(secret, timestamp, signature string, body []byte) error {
	if secret == "" || timestamp == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// WebhookEvent is the part of a payment webhook the server acts on.
type WebhookEvent struct {
	Type          string
	OrderID       string
	PaymentStatus string
}

func ParseWebhook(body []byte) (WebhookEvent, error) {
	if !gjson.ValidBytes(body) {
		return WebhookEvent{}, errors.New("webhook body is not valid JSON")
	}
	res := gjson.GetManyBytes(body, "type", "data.order.order_id", "data.payment.payment_status")
	ev := WebhookEvent{
		Type:          res[0].String(),
		OrderID:       res[1].String(),
		PaymentStatus: res[2].String(),
	}
	if ev.OrderID == "" {
		return WebhookEvent{}, errors.New("webhook body has no data.order.order_id")
	}
	return ev, nil
}
