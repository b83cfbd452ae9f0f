package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond}
}

func newRequest(ctx context.Context) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, "http://upstream.test/send", strings.NewReader(`{}`))
}

func TestSendRetriesServerErrorsThenSucceeds(t *testing.T) {
	calls := 0
	client := NewClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		status := http.StatusBadGateway
		if calls == 3 {
			status = http.StatusOK
		}
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(`{"ok":true}`)), Header: http.Header{}}, nil
	})}, fastPolicy())

	resp, err := client.Send(context.Background(), newRequest)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.True(t, resp.OK())
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestSendStopsAfterBudget(t *testing.T) {
	calls := 0
	client := NewClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})}, fastPolicy())

	_, err := client.Send(context.Background(), newRequest)
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	client := NewClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader(`{"status":"error"}`)), Header: http.Header{}}, nil
	})}, fastPolicy())

	resp, err := client.Send(context.Background(), newRequest)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.False(t, resp.OK())
}

func TestDoSkipsNonRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeGatewayRejected, "declined")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
