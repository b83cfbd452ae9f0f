package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
)

type transitionBody struct {
	Status string `json:"status" validate:"required,oneof=confirmed preparing"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"confirmed"}`))
	var body transitionBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Status != "confirmed" {
		t.Fatalf("unexpected status %q", body.Status)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"status":"confirmed","extra":1}`,
		"bad oneof":     `{"status":"teleported"}`,
		"missing":       `{}`,
		"malformed":     `{"status":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body transitionBody
			err := DecodeJSONBody(req, &body)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParsePathID(t *testing.T) {
	build := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	if id, err := ParsePathID(build("42"), "orderId"); err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := ParsePathID(build(bad), "orderId"); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected out of range to fail")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, _ := ParseQueryInt(req, "limit", 25, 1, 100); v != 25 {
		t.Fatalf("expected default, got %d", v)
	}
}
