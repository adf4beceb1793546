package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signCheckout(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func TestGatewayVerifySignature(t *testing.T) {
	g := NewPaymentGateway("key_id", "key_secret", nil)

	valid := signCheckout("key_secret", "order_123", "pay_456")
	assert.True(t, g.verifySignature("order_123", "pay_456", valid))

	t.Run("wrong signature", func(t *testing.T) {
		assert.False(t, g.verifySignature("order_123", "pay_456", "deadbeef"))
	})

	t.Run("signature for a different order", func(t *testing.T) {
		other := signCheckout("key_secret", "order_999", "pay_456")
		assert.False(t, g.verifySignature("order_123", "pay_456", other))
	})

	t.Run("missing secret never verifies", func(t *testing.T) {
		unconfigured := NewPaymentGateway("", "", nil)
		sig := signCheckout("", "order_123", "pay_456")
		assert.False(t, unconfigured.verifySignature("order_123", "pay_456", sig))
	})
}

func TestGatewayIsEnabled(t *testing.T) {
	assert.True(t, NewPaymentGateway("id", "secret", nil).IsEnabled())
	assert.False(t, NewPaymentGateway("", "secret", nil).IsEnabled())
	assert.False(t, NewPaymentGateway("id", "", nil).IsEnabled())
}
