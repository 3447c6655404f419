// Package gateway talks to the Monobank acquiring API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Invoice statuses reported by the gateway.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusHold       = "hold"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusReversed   = "reversed"
	StatusExpired    = "expired"
)

var ErrUnavailable = errors.New("payment gateway unavailable")

type Invoice struct {
	InvoiceID  string
	PaymentURL string
	ExpiresAt  time.Time
}

type Withdrawal struct {
	WithdrawalID string
	Status       string
	Card         string
}

// WebhookEvent is the status callback payload. Amount is in kopiykas.
type WebhookEvent struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Client is the surface the payment service depends on.
type Client interface {
	CreateInvoice(ctx context.Context, amount int64, reference, destination string) (Invoice, error)
	InvoiceStatus(ctx context.Context, invoiceID string) (string, error)
	CreateWithdrawal(ctx context.Context, card string, amount int64, reference string) (Withdrawal, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

// ParseWebhook decodes a webhook callback body.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, err
	}
	if event.InvoiceID == "" {
		return WebhookEvent{}, errors.New("webhook missing invoiceId")
	}
	return event, nil
}
