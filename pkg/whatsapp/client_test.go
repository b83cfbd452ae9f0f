package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/httpretry"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"messages":[{"id":"wamid.1"}]}`)),
		Header:     http.Header{},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("token-1", "default-phone-id",
		WithBaseURL("http://graph.test"),
		WithAPIVersion("v18.0"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithRetryPolicy(httpretry.Policy{MaxAttempts: 3, BaseBackoff: time.Millisecond}),
	)
	require.NoError(t, err)
	return client
}

func TestSendTextUsesInboundPhoneNumberID(t *testing.T) {
	var capturedURL string
	var payload map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		require.Equal(t, "Bearer token-1", req.Header.Get("Authorization"))
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		return okResponse(), nil
	})

	err := client.SendText(context.Background(), Metadata{PhoneNumberID: "inbound-id"}, "255700000001", "hello")
	require.NoError(t, err)
	require.Equal(t, "http://graph.test/v18.0/inbound-id/messages", capturedURL)
	require.Equal(t, "text", payload["type"])
	require.Equal(t, "255700000001", payload["to"])
	require.Equal(t, "hello", payload["text"].(map[string]any)["body"])
}

func TestSendTextFallsBackToDefaultPhoneNumberID(t *testing.T) {
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return okResponse(), nil
	})

	require.NoError(t, client.SendText(context.Background(), Metadata{}, "255700000001", "hello"))
	require.Equal(t, "http://graph.test/v18.0/default-phone-id/messages", capturedURL)
}

func TestSendInteractiveBuildsButtonsAndLists(t *testing.T) {
	var payloads []map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		payloads = append(payloads, payload)
		return okResponse(), nil
	})

	err := client.SendInteractive(context.Background(), Metadata{}, "255700000001", Interactive{
		Body:    "Add more or checkout?",
		Buttons: []Button{{ID: "cart_add", Title: "Add more"}, {ID: "cart_checkout", Title: "Checkout"}},
	})
	require.NoError(t, err)

	err = client.SendInteractive(context.Background(), Metadata{}, "255700000001", Interactive{
		Body:       "Choose a network",
		ListButton: "Networks",
		Sections:   []Section{{Title: "Mobile money", Rows: []Row{{ID: "payment_vodacom", Title: "Vodacom"}}}},
	})
	require.NoError(t, err)

	require.Len(t, payloads, 2)
	buttons := payloads[0]["interactive"].(map[string]any)
	require.Equal(t, "button", buttons["type"])
	require.Len(t, buttons["action"].(map[string]any)["buttons"], 2)

	list := payloads[1]["interactive"].(map[string]any)
	require.Equal(t, "list", list["type"])
	require.Equal(t, "Networks", list["action"].(map[string]any)["button"])
}

func TestSendInteractiveRejectsTooManyButtons(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	err := client.SendInteractive(context.Background(), Metadata{}, "1", Interactive{
		Body:    "pick",
		Buttons: []Button{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSendTextRetriesAndSurfacesDependencyError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{StatusCode: http.StatusServiceUnavailable, Body: io.NopCloser(strings.NewReader("down")), Header: http.Header{}}, nil
	})

	err := client.SendText(context.Background(), Metadata{}, "1", "hi")
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(" ", "id")
	require.Error(t, err)
}
