// Package payments adapts the external card-payment provider. The rest of
// the system only sees the Gateway interface; nothing else knows HTTP.
package payments

import "context"

type IntentStatus string

const (
	IntentSucceeded      IntentStatus = "succeeded"
	IntentFailed         IntentStatus = "failed"
	IntentRequiresAction IntentStatus = "requires_action"
	IntentCanceled       IntentStatus = "canceled"
	IntentProcessing     IntentStatus = "processing"
)

// Webhook event kinds. The provider may add kinds over time; consumers must
// ack and ignore anything they do not recognize.
const (
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventPaymentRequiresAction = "payment.requires_action"
	EventPaymentCanceled       = "payment.canceled"
)

type Intent struct {
	Ref          string       `json:"id"`
	ClientSecret string       `json:"client_secret"`
	AmountCents  int          `json:"amount"`
	Currency     string       `json:"currency"`
	Status       IntentStatus `json:"status"`
}

type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PaymentRef string `json:"payment_ref"`
	Reason     string `json:"reason,omitempty"`
}

type RefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Gateway interface {
	// CreateIntent registers a payment of amountCents with the provider and
	// returns the reference plus the client-confirmable secret.
	CreateIntent(ctx context.Context, amountCents int, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, ref string) (Intent, error)
	Refund(ctx context.Context, ref, reason string) (RefundResult, error)
	// VerifyWebhook checks the signature header against the raw body and
	// decodes the event. Returns ErrBadSignature on any mismatch.
	VerifyWebhook(payload []byte, sigHeader string) (Event, error)
	// PublicKey is what the browser widget needs to initialize.
	PublicKey() string
}
