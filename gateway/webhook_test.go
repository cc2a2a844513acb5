package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookBody = `{"data":{"order":{"order_id":"order_abc","order_amount":100},"payment":{"cf_payment_id":5114910773,"payment_status":"SUCCESS"}},"type":"PAYMENT_SUCCESS_WEBHOOK"}`

func TestVerifyWebhookSignature(t *testing.T) {
	sig := Sign("whsec", "1700000000", []byte(webhookBody))

	assert.NoError(t, VerifyWebhookSignature("whsec", "1700000000", sig, []byte(webhookBody)))
	assert.ErrorIs(t, VerifyWebhookSignature("whsec", "1700000001", sig, []byte(webhookBody)), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("other", "1700000000", sig, []byte(webhookBody)), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("whsec", "1700000000", sig, []byte(webhookBody+" ")), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature("", "1700000000", sig, []byte(webhookBody)), ErrInvalidSignature)
}

func TestParseWebhook(t *testing.T) {
	ev, err := ParseWebhook([]byte(webhookBody))
	require.NoError(t, err)
	assert.Equal(t, "order_abc", ev.OrderID)
	assert.Equal(t, "SUCCESS", ev.PaymentStatus)
	assert.Equal(t, "PAYMENT_SUCCESS_WEBHOOK", ev.Type)

	_, err = ParseWebhook([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}
