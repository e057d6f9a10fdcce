package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:       srv.URL,
		SecretKey:     "sk_test",
		PublicKey:     "pk_test",
		WebhookSecret: "whsec_test",
		Timeout:       2 * time.Second,
	})
}

func TestCreateIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 2500, req["amount"])

		_ = json.NewEncoder(w).Encode(Intent{
			Ref: "pi_123", ClientSecret: "pi_123_secret", AmountCents: 2500,
			Currency: "usd", Status: IntentProcessing,
		})
	})

	in, err := c.CreateIntent(context.Background(), 2500, "usd", map[string]string{"order_id": "o1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", in.Ref)
	assert.Equal(t, "pi_123_secret", in.ClientSecret)
}

func TestCreateIntentAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "amount_too_small", "message": "minimum is 50"})
	})

	_, err := c.CreateIntent(context.Background(), 1, "usd", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "amount_too_small", apiErr.Code)
	assert.False(t, Transient(err), "a 4xx rejection is final")
}

func TestTransientOnServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.RetrieveIntent(context.Background(), "pi_123")
	assert.True(t, Transient(err))
}

func TestVerifyWebhookDecodesEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	payload := []byte(`{
		"id": "evt_42",
		"type": "payment.failed",
		"data": {"object": {"id": "pi_9", "status": "failed", "failure_reason": "card_declined"}}
	}`)
	header := SignPayload("whsec_test", time.Now(), payload)

	ev, err := c.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_42", ev.ID)
	assert.Equal(t, "payment.failed", ev.Type)
	assert.Equal(t, "pi_9", ev.PaymentRef)
	assert.Equal(t, "card_declined", ev.Reason)
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.VerifyWebhook([]byte(`{}`), "t=1,v1=bad")
	assert.ErrorIs(t, err, ErrBadSignature)
}
