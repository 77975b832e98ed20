package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/logger"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifier_Verify(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)

	t.Run("valid signature", func(t *testing.T) {
		v := NewWebhookVerifier(secret, false, logger.NewNop())

		err := v.Verify(body, sign(secret, body))

		assert.NoError(t, err)
	})

	t.Run("signature without prefix also accepted", func(t *testing.T) {
		v := NewWebhookVerifier(secret, false, logger.NewNop())

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		err := v.Verify(body, hex.EncodeToString(mac.Sum(nil)))

		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		v := NewWebhookVerifier(secret, false, logger.NewNop())

		err := v.Verify(body, sign("whsec_other", body))

		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		v := NewWebhookVerifier(secret, false, logger.NewNop())
		sig := sign(secret, body)

		err := v.Verify([]byte(`{"id":"evt_2"}`), sig)

		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("missing or malformed signature", func(t *testing.T) {
		v := NewWebhookVerifier(secret, false, logger.NewNop())

		assert.ErrorIs(t, v.Verify(body, ""), billing.ErrInvalidSignature)
		assert.ErrorIs(t, v.Verify(body, "sha256=not-hex"), billing.ErrInvalidSignature)
	})

	t.Run("no secret rejects by default", func(t *testing.T) {
		v := NewWebhookVerifier("", false, logger.NewNop())

		assert.ErrorIs(t, v.Verify(body, ""), billing.ErrInvalidSignature)
	})

	t.Run("no secret with unsigned allowed", func(t *testing.T) {
		v := NewWebhookVerifier("", true, logger.NewNop())

		assert.NoError(t, v.Verify(body, ""))
	})
}

func TestWebhookVerifier_Decode(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", false, logger.NewNop())

	t.Run("full payload", func(t *testing.T) {
		body := []byte(`{
			"id": "evt_123",
			"type": "payment.succeeded",
			"created_at": 1756684800,
			"data": {
				"customer_id": "cus_1",
				"subscription_id": "sub_1",
				"plan": "starter",
				"current_period_start": 1756684800,
				"current_period_end": 1759276800,
				"cancel_at_period_end": false
			}
		}`)

		evt, err := v.Decode(body)

		require.NoError(t, err)
		assert.Equal(t, "evt_123", evt.ID)
		assert.Equal(t, billing.EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "cus_1", evt.ProviderCustomerID)
		assert.Equal(t, "sub_1", evt.ProviderSubID)
		assert.Equal(t, "starter", evt.Plan)
		assert.Equal(t, time.Unix(1756684800, 0).UTC(), evt.PeriodStart)
		assert.Equal(t, time.Unix(1759276800, 0).UTC(), evt.PeriodEnd)
	})

	t.Run("missing event id", func(t *testing.T) {
		_, err := v.Decode([]byte(`{"type":"payment.succeeded"}`))

		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := v.Decode([]byte(`{`))

		assert.Error(t, err)
	})
}
