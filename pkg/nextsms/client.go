// Package nextsms sends single SMS messages through the NextSMS gateway.
package nextsms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/httpretry"
)

const (
	defaultBaseURL  = "https://messaging-service.co.tz"
	defaultSenderID = "KwetuPizza"
	acceptedCode    = "100"
	errorBodyLimit  = 1024
)

var (
	errCredentialsRequired = errors.New("nextsms username and password are required")
	nonDigits              = regexp.MustCompile(`\D`)
)

// Client sends SMS through NextSMS. A disabled client accepts and drops every
// message.
type Client struct {
	sender   *httpretry.Client
	baseURL  string
	auth     string
	senderID string
	disabled bool
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	senderID   string
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

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

// WithSenderID overrides the alphanumeric sender.
func WithSenderID(senderID string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(senderID); trimmed != "" {
			o.senderID = trimmed
		}
	}
}

// WithRetryPolicy overrides the outbound retry budget.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(o *clientOptions) {
		o.policy = policy
	}
}

// NewClient builds an enabled client.
func NewClient(username, password string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, errCredentialsRequired
	}
	options := clientOptions{baseURL: defaultBaseURL, senderID: defaultSenderID, policy: httpretry.DefaultPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Client{
		sender:   httpretry.NewClient(options.httpClient, options.policy),
		baseURL:  strings.TrimRight(options.baseURL, "/"),
		auth:     base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
		senderID: options.senderID,
	}, nil
}

// NewDisabled returns a client whose Send is a no-op.
func NewDisabled() *Client {
	return &Client{disabled: true}
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c != nil && !c.disabled
}

type sendResponse struct {
	Code     json.RawMessage `json:"code"`
	Messages []struct {
		To     any `json:"to"`
		Status struct {
			GroupID   int    `json:"groupId"`
			GroupName string `json:"groupName"`
			Name      string `json:"name"`
		} `json:"status"`
	} `json:"messages"`
}

func (r sendResponse) accepted() bool {
	if code := strings.Trim(string(r.Code), `"`); code == acceptedCode {
		return true
	}
	if len(r.Messages) == 0 {
		return false
	}
	switch strings.ToUpper(r.Messages[0].Status.GroupName) {
	case "PENDING", "DELIVERED":
		return true
	}
	return false
}

// Send delivers text to a Tanzanian number.
func (c *Client) Send(ctx context.Context, to, text string) error {
	if !c.Enabled() {
		return nil
	}
	recipient := NormalizePhone(to)
	if recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sms recipient is required")
	}

	payload, err := json.Marshal(map[string]string{
		"from": c.senderID,
		"to":   recipient,
		"text": text,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal sms payload")
	}

	endpoint := c.baseURL + "/api/sms/v1/text/single"
	resp, err := c.sender.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Basic "+c.auth)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send sms")
	}

	var decoded sendResponse
	if !resp.OK() || json.Unmarshal(resp.Body, &decoded) != nil || !decoded.accepted() {
		body := resp.Body
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "sms not accepted")
	}
	return nil
}

// NormalizePhone strips formatting and ensures the 255 country prefix.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "255") {
		return digits
	}
	return "255" + strings.TrimLeft(digits, "0")
}
