package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{name: "valid bearer", configured: "s3cret", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "bare token", configured: "s3cret", header: "s3cret", want: http.StatusNoContent},
		{name: "missing header", configured: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "wrong token", configured: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "disabled", configured: "", header: "Bearer anything", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AdminToken(tc.configured, nil)(next).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequestIDEchoesOrGenerates(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(requestIDHeader, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "req-1" {
		t.Fatalf("expected echoed id, got %q", seen)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if seen == "" || seen == "req-1" {
		t.Fatalf("expected generated id, got %q", seen)
	}
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
