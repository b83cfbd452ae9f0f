// Package httpretry executes outbound HTTP calls with a bounded exponential
// retry budget shared by the chat, SMS, and payment gateway clients.
package httpretry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 250 * time.Millisecond
	maxBackoff         = 5 * time.Second
	responseReadLimit  = 1 << 20
)

// Policy bounds the retry budget of a single logical call.
type Policy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultPolicy is three attempts starting at 250ms.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseBackoff: DefaultBaseBackoff}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = DefaultBaseBackoff
	}
	return p
}

func (p Policy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseBackoff)
	b = retry.WithCappedDuration(maxBackoff, b)
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the budget
// runs out. Errors are retryable when pkg/errors marks their code retryable.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	policy = policy.normalized()
	return retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if pkgerrors.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestBuilder creates a fresh request per attempt so bodies can be replayed.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Client sends requests under a retry policy.
type Client struct {
	http   *http.Client
	policy Policy
}

// NewClient wraps httpClient; a nil client gets a 30s timeout default.
func NewClient(httpClient *http.Client, policy Policy) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, policy: policy.normalized()}
}

// Send executes the request built by build. Transport failures, 429 and 5xx
// responses are retried; any other response is returned to the caller as is.
// When retries are exhausted on a retryable status the last response is
// returned alongside a DEPENDENCY error.
func (c *Client) Send(ctx context.Context, build RequestBuilder) (*Response, error) {
	var last *Response
	err := Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
		}
		last = &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
		if shouldRetryStatus(resp.StatusCode) {
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("upstream status %d", resp.StatusCode))
		}
		return nil
	})
	return last, err
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
