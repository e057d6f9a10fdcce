package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Client talks to the provider's REST API. Every call is bounded by the
// http.Client timeout; a timeout or connection error is transient and says
// nothing about the payment outcome.
type Client struct {
	baseURL       string
	secretKey     string
	publicKey     string
	webhookSecret string
	http          *http.Client
	now           func() time.Time
}

type ClientConfig struct {
	BaseURL       string
	SecretKey     string
	PublicKey     string
	WebhookSecret string
	Timeout       time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		publicKey:     cfg.PublicKey,
		webhookSecret: cfg.WebhookSecret,
		http:          &http.Client{Timeout: timeout},
		now:           time.Now,
	}
}

func (c *Client) PublicKey() string { return c.publicKey }

// APIError is a non-2xx answer from the provider. Not transient: the
// request was received and rejected.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Transient reports whether err is worth retrying (network/timeout rather
// than a provider rejection).
func Transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int, currency string, metadata map[string]string) (Intent, error) {
	req := map[string]any{
		"amount":   amountCents,
		"currency": currency,
		"metadata": metadata,
	}
	var in Intent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", req, &in); err != nil {
		return Intent{}, err
	}
	return in, nil
}

func (c *Client) RetrieveIntent(ctx context.Context, ref string) (Intent, error) {
	var in Intent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+ref, nil, &in); err != nil {
		return Intent{}, err
	}
	return in, nil
}

func (c *Client) Refund(ctx context.Context, ref, reason string) (RefundResult, error) {
	req := map[string]any{"payment_intent": ref, "reason": reason}
	var out RefundResult
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", req, &out); err != nil {
		return RefundResult{}, err
	}
	return out, nil
}

// webhookBody is the provider's event wire shape.
type webhookBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			FailureReason string `json:"failure_reason"`
		} `json:"object"`
	} `json:"data"`
}

func (c *Client) VerifyWebhook(payload []byte, sigHeader string) (Event, error) {
	if err := VerifySignature(c.webhookSecret, sigHeader, payload, c.now()); err != nil {
		return Event{}, err
	}
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("decode webhook: %w", err)
	}
	return Event{
		ID:         body.ID,
		Type:       body.Type,
		PaymentRef: body.Data.Object.ID,
		Reason:     body.Data.Object.FailureReason,
	}, nil
}
