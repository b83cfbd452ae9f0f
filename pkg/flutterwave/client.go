// Package flutterwave drives Tanzanian mobile-money charges through the
// Flutterwave v3 API.
package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/httpretry"
)

const (
	defaultBaseURL = "https://api.flutterwave.com"
	chargeType     = "mobile_money_tanzania"
	errorBodyLimit = 1024
	statusSuccess  = "success"
)

var (
	errSecretKeyRequired = errors.New("flutterwave secret key is required")
)

// Client talks to the Flutterwave charges and verification endpoints.
type Client struct {
	sender    *httpretry.Client
	baseURL   string
	secretKey string
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	policy     httpretry.Policy
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

// WithRetryPolicy overrides the outbound retry budget.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(o *clientOptions) {
		o.policy = policy
	}
}

// NewClient builds a Flutterwave client.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, errSecretKeyRequired
	}
	options := clientOptions{baseURL: defaultBaseURL, policy: httpretry.DefaultPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Client{
		sender:    httpretry.NewClient(options.httpClient, options.policy),
		baseURL:   strings.TrimRight(options.baseURL, "/"),
		secretKey: key,
	}, nil
}

// ChargeRequest is a mobile-money push to the payer's handset.
type ChargeRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	PhoneNumber string
	Network     string
	FullName    string
	Meta        map[string]string
}

// ChargeResult is the gateway's synchronous answer to a charge request.
type ChargeResult struct {
	Status    string
	Message   string
	Reference string
	ChargeID  int64
}

type chargeBody struct {
	TxRef       string            `json:"tx_ref"`
	Amount      json.Number       `json:"amount"`
	Currency    string            `json:"currency"`
	Email       string            `json:"email"`
	PhoneNumber string            `json:"phone_number"`
	Network     string            `json:"network"`
	FullName    string            `json:"fullname"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ChargeMobileMoney requests a mobile-money push. Transport failures return
// DEPENDENCY errors; a definitive refusal returns GATEWAY_REJECTED.
func (c *Client) ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx_ref is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	payload, err := json.Marshal(chargeBody{
		TxRef:       req.TxRef,
		Amount:      json.Number(req.Amount.StringFixed(2)),
		Currency:    req.Currency,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Network:     req.Network,
		FullName:    req.FullName,
		Meta:        req.Meta,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal charge request")
	}

	endpoint := fmt.Sprintf("%s/v3/charges?type=%s", c.baseURL, url.QueryEscape(chargeType))
	resp, err := c.sender.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		c.authorize(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute charge request")
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, snippet(resp.Body)), "decode charge response")
	}
	if !resp.OK() || !strings.EqualFold(env.Status, statusSuccess) {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, "charge request rejected").WithDetails(map[string]any{
			"status":  resp.StatusCode,
			"message": env.Message,
		})
	}

	var data struct {
		ID     int64  `json:"id"`
		FlwRef string `json:"flw_ref"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	return &ChargeResult{
		Status:    env.Status,
		Message:   env.Message,
		Reference: data.FlwRef,
		ChargeID:  data.ID,
	}, nil
}

// Verification is the authoritative state of a transaction.
type Verification struct {
	ID          int64
	Status      string
	TxRef       string
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	PaymentType string
	Network     string
	Raw         json.RawMessage
}

// VerifyTransaction fetches the gateway's view of transaction id.
func (c *Client) VerifyTransaction(ctx context.Context, id string) (*Verification, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	endpoint := fmt.Sprintf("%s/v3/transactions/%s/verify", c.baseURL, url.PathEscape(trimmed))
	resp, err := c.sender.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute verify request")
	}
	if !resp.OK() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, snippet(resp.Body)), "verify request failed")
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}
	if !strings.EqualFold(env.Status, statusSuccess) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verify request unsuccessful").WithDetails(map[string]any{"message": env.Message})
	}

	var data struct {
		ID          int64           `json:"id"`
		TxRef       string          `json:"tx_ref"`
		FlwRef      string          `json:"flw_ref"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Status      string          `json:"status"`
		PaymentType string          `json:"payment_type"`
		Meta        struct {
			Network string `json:"network"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify data")
	}
	return &Verification{
		ID:          data.ID,
		Status:      strings.ToLower(data.Status),
		TxRef:       data.TxRef,
		Reference:   data.FlwRef,
		Amount:      data.Amount,
		Currency:    data.Currency,
		PaymentType: data.PaymentType,
		Network:     data.Meta.Network,
		Raw:         env.Data,
	}, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
}

func snippet(body []byte) string {
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return strings.TrimSpace(string(body))
}
