package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/httpretry"
)

const (
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v18.0"
	errorBodyLimit    = 1024
	maxReplyButtons   = 3
	maxButtonTitle    = 20
	maxRowTitle       = 24
)

var (
	errAccessTokenRequired = errors.New("whatsapp access token is required")
)

// Metadata routes a send through a specific business phone number. Inbound
// webhooks carry it; proactive sends fall back to the configured default.
type Metadata struct {
	PhoneNumberID string
}

// Client calls the WhatsApp Cloud API messages endpoint.
type Client struct {
	sender               *httpretry.Client
	baseURL              string
	apiVersion           string
	accessToken          string
	defaultPhoneNumberID string
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
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

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = trimmed
		}
	}
}

// WithAPIVersion overrides the Graph API version segment.
func WithAPIVersion(version string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(version); trimmed != "" {
			o.apiVersion = trimmed
		}
	}
}

// WithRetryPolicy overrides the outbound retry budget.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(o *clientOptions) {
		o.policy = policy
	}
}

// NewClient builds a Cloud API client.
func NewClient(accessToken, defaultPhoneNumberID string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	options := clientOptions{
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
		policy:     httpretry.DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Client{
		sender:               httpretry.NewClient(options.httpClient, options.policy),
		baseURL:              strings.TrimRight(options.baseURL, "/"),
		apiVersion:           options.apiVersion,
		accessToken:          token,
		defaultPhoneNumberID: strings.TrimSpace(defaultPhoneNumberID),
	}, nil
}

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// Row is one selectable entry in a list message.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Section groups list rows under a title.
type Section struct {
	Title string
	Rows  []Row
}

// Interactive is either a button message or a list message. Lists are used
// when Sections is non-empty.
type Interactive struct {
	Header     string
	Body       string
	Footer     string
	Buttons    []Button
	ListButton string
	Sections   []Section
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, meta Metadata, to, body string) error {
	if strings.TrimSpace(body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": body},
	}
	return c.send(ctx, meta, payload)
}

// SendInteractive delivers a button or list message.
func (c *Client) SendInteractive(ctx context.Context, meta Metadata, to string, msg Interactive) error {
	interactive, err := buildInteractive(msg)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	}
	return c.send(ctx, meta, payload)
}

func buildInteractive(msg Interactive) (map[string]any, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "interactive body is required")
	}
	out := map[string]any{"body": map[string]any{"text": msg.Body}}
	if msg.Header != "" {
		out["header"] = map[string]any{"type": "text", "text": msg.Header}
	}
	if msg.Footer != "" {
		out["footer"] = map[string]any{"text": msg.Footer}
	}

	if len(msg.Sections) > 0 {
		label := msg.ListButton
		if label == "" {
			label = "Choose"
		}
		sections := make([]map[string]any, 0, len(msg.Sections))
		for _, section := range msg.Sections {
			rows := make([]map[string]any, 0, len(section.Rows))
			for _, row := range section.Rows {
				entry := map[string]any{"id": row.ID, "title": truncate(row.Title, maxRowTitle)}
				if row.Description != "" {
					entry["description"] = row.Description
				}
				rows = append(rows, entry)
			}
			sections = append(sections, map[string]any{"title": truncate(section.Title, maxRowTitle), "rows": rows})
		}
		out["type"] = "list"
		out["action"] = map[string]any{"button": truncate(label, maxButtonTitle), "sections": sections}
		return out, nil
	}

	if len(msg.Buttons) == 0 || len(msg.Buttons) > maxReplyButtons {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("interactive buttons must number 1-%d", maxReplyButtons))
	}
	buttons := make([]map[string]any, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		buttons = append(buttons, map[string]any{
			"type":  "reply",
			"reply": map[string]any{"id": b.ID, "title": truncate(b.Title, maxButtonTitle)},
		})
	}
	out["type"] = "button"
	out["action"] = map[string]any{"buttons": buttons}
	return out, nil
}

func (c *Client) send(ctx context.Context, meta Metadata, payload map[string]any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "whatsapp client not configured")
	}
	phoneNumberID := strings.TrimSpace(meta.PhoneNumberID)
	if phoneNumberID == "" {
		phoneNumberID = c.defaultPhoneNumberID
	}
	if phoneNumberID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone number id is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal whatsapp payload")
	}
	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, phoneNumberID)

	resp, err := c.sender.Send(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send whatsapp message")
	}
	if !resp.OK() {
		msg := resp.Body
		if len(msg) > errorBodyLimit {
			msg = msg[:errorBodyLimit]
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "whatsapp send rejected")
	}
	return nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
