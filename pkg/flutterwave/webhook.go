package flutterwave

import (
	"crypto/subtle"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// SignatureHeader carries the shared secret hash configured on the dashboard.
	SignatureHeader = "verif-hash"
	// EventChargeCompleted is the only event that resolves a payment attempt.
	EventChargeCompleted = "charge.completed"
)

// WebhookEvent is the body Flutterwave posts on charge updates.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	ID          json.Number     `json:"id"`
	TxRef       string          `json:"tx_ref"`
	FlwRef      string          `json:"flw_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	PaymentType string          `json:"payment_type"`
}

// TransactionID returns the gateway transaction id as a string.
func (d WebhookData) TransactionID() string {
	return strings.TrimSpace(d.ID.String())
}

// NormalizedStatus lower-cases the reported status.
func (d WebhookData) NormalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(d.Status))
}

// VerifySignature compares the header value with the configured secret in
// constant time.
func VerifySignature(header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(secret)) == 1
}
